package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

func report(started time.Time, status, output string, frames int) domain.RunReport {
	rr := domain.RunReport{
		Root:       "/abs/photos",
		StartDate:  "2021-05-01",
		EndDate:    "2021-05-02",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Status:     status,
		Output:     output,
	}
	rr.Summary.FramesWritten = frames
	return rr
}

func TestStore_RecordAndRecentRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("打开失败：%v", err)
	}
	defer store.Close()

	base := time.Date(2021, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := store.RecordRun(report(base, domain.StatusOK, "/out/video-1.mp4", 120)); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := store.RecordRun(report(base.Add(time.Hour), domain.StatusEmpty, "", 0)); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	rows, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d", len(rows))
	}

	// 时间倒序：最新的在前。
	if rows[0].Status != domain.StatusEmpty || rows[1].Status != domain.StatusOK {
		t.Fatalf("排序不正确：%+v", rows)
	}
	if rows[1].Output != "/out/video-1.mp4" || rows[1].FramesWritten != 120 {
		t.Fatalf("字段回读不正确：%+v", rows[1])
	}
	if rows[1].StartedAt != "2021-05-01T10:00:00Z" {
		t.Fatalf("started_at 应是 UTC RFC3339：%q", rows[1].StartedAt)
	}
}

func TestStore_RecentRunsLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("打开失败：%v", err)
	}
	defer store.Close()

	base := time.Date(2021, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.RecordRun(report(base.Add(time.Duration(i)*time.Hour), domain.StatusOK, "", i)); err != nil {
			t.Fatalf("写入失败：%v", err)
		}
	}

	rows, err := store.RecentRuns(1)
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if len(rows) != 1 || rows[0].FramesWritten != 2 {
		t.Fatalf("limit 未生效：%+v", rows)
	}
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("首次打开失败：%v", err)
	}
	if err := s1.RecordRun(report(time.Now(), domain.StatusOK, "", 1)); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("关闭失败：%v", err)
	}

	// 重新打开已有库：迁移幂等，旧数据可读。
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("二次打开失败：%v", err)
	}
	defer s2.Close()

	rows, err := s2.RecentRuns(10)
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("期望 1 条记录，实际 %d", len(rows))
	}
}
