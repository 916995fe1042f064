package app

import (
	"testing"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

func at(h, m, s int) time.Time {
	return time.Date(2021, 5, 1, h, m, s, 0, time.UTC)
}

func cand(taken time.Time) domain.Candidate {
	return domain.Candidate{Taken: taken, Prefix: "cam", Path: taken.Format("/abs/20060102150405.jpg")}
}

func TestSelectHourly_FirstNPerHour(t *testing.T) {
	in := []domain.Candidate{
		cand(at(9, 0, 0)),
		cand(at(9, 15, 0)),
		cand(at(9, 45, 0)),
		cand(at(10, 5, 0)),
		cand(at(10, 59, 59)),
	}

	kept, dropped := SelectHourly(in, 2)
	if len(kept) != 4 || dropped != 1 {
		t.Fatalf("期望 kept=4 dropped=1，实际 kept=%d dropped=%d", len(kept), dropped)
	}

	// 取舍规则：每小时取最先出现的 max 张（09:45 被丢）。
	if !kept[0].Taken.Equal(at(9, 0, 0)) || !kept[1].Taken.Equal(at(9, 15, 0)) {
		t.Fatalf("09 时桶取舍不正确：%v, %v", kept[0].Taken, kept[1].Taken)
	}
	if !kept[2].Taken.Equal(at(10, 5, 0)) {
		t.Fatalf("10 时桶取舍不正确：%v", kept[2].Taken)
	}
}

func TestSelectHourly_UnlimitedWhenNonPositive(t *testing.T) {
	in := []domain.Candidate{cand(at(9, 0, 0)), cand(at(9, 1, 0)), cand(at(9, 2, 0))}

	kept, dropped := SelectHourly(in, 0)
	if len(kept) != 3 || dropped != 0 {
		t.Fatalf("maxPerHour=0 应不限流，实际 kept=%d dropped=%d", len(kept), dropped)
	}
	kept, dropped = SelectHourly(in, -1)
	if len(kept) != 3 || dropped != 0 {
		t.Fatalf("maxPerHour<0 应不限流，实际 kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestSelectHourly_BucketIsFullDateHour(t *testing.T) {
	// 不同天的同一小时是不同的桶：各自独立计数。
	in := []domain.Candidate{
		cand(time.Date(2021, 5, 1, 9, 0, 0, 0, time.UTC)),
		cand(time.Date(2021, 5, 2, 9, 0, 0, 0, time.UTC)),
	}

	kept, dropped := SelectHourly(in, 1)
	if len(kept) != 2 || dropped != 0 {
		t.Fatalf("跨天同小时不应共享配额，实际 kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestHourLimiter_FreshPerRun(t *testing.T) {
	// 计数器随 Limiter 丢弃：新实例不受之前消费影响。
	l := NewHourLimiter(1)
	if !l.Allow(at(9, 0, 0)) {
		t.Fatal("首张应放行")
	}
	if l.Allow(at(9, 30, 0)) {
		t.Fatal("同小时第二张应被拒")
	}

	l2 := NewHourLimiter(1)
	if !l2.Allow(at(9, 30, 0)) {
		t.Fatal("新 Limiter 不应继承旧计数")
	}
}
