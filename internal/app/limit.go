package app

import (
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

// HourLimiter 维护 (年,月,日,时) 维度的配额计数。
//
// 约束：
// - 只由编排线程单线程驱动，不需要锁
// - 计数器随 Limiter 一起丢弃，不做任何跨运行复用（保证流程可在进程内
//   多次执行而互不影响）
type HourLimiter struct {
	max    int
	counts map[domain.HourKey]int
}

// NewHourLimiter 创建限流器；maxPerHour<=0 视为不限流。
func NewHourLimiter(maxPerHour int) *HourLimiter {
	return &HourLimiter{
		max:    maxPerHour,
		counts: make(map[domain.HourKey]int, 64),
	}
}

// Allow 判断该时间所属小时桶是否还有预算；有则消费一个名额并返回 true。
func (l *HourLimiter) Allow(taken time.Time) bool {
	if l.max <= 0 {
		return true
	}
	k := domain.HourKeyOf(taken)
	if l.counts[k] >= l.max {
		return false
	}
	l.counts[k]++
	return true
}

// SelectHourly 对时间升序的候选集应用小时配额，保持输入顺序。
//
// 输入已按时间升序时，这等价于“每小时取最先出现的 max 张”——
// 这是唯一的取舍规则，不做小时内均匀采样之类的启发式。
func SelectHourly(cands []domain.Candidate, maxPerHour int) (kept []domain.Candidate, dropped int) {
	l := NewHourLimiter(maxPerHour)
	kept = make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if !l.Allow(c.Taken) {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}
