package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

// Store 是本地运行目录（<output_dir>/runs.db）：每次非 dry-run 的运行一行，
// 用于事后回答“上次生成了什么、用了什么参数、跳过了多少”。
//
// 约束：
// - 记录失败只允许降级为 warning，绝不影响运行结果
// - 单连接即可（一次运行只写一行）
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）运行目录数据库。
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开运行目录失败：%w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化运行目录失败：%w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		root TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		output TEXT NOT NULL,
		scanned_files INTEGER NOT NULL DEFAULT 0,
		parse_skipped INTEGER NOT NULL DEFAULT 0,
		selected INTEGER NOT NULL DEFAULT 0,
		rate_dropped INTEGER NOT NULL DEFAULT 0,
		decode_failed INTEGER NOT NULL DEFAULT 0,
		frames_written INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun 追加一行运行记录。
func (s *Store) RecordRun(rr domain.RunReport) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (
			started_at, finished_at, root, start_date, end_date, status, output,
			scanned_files, parse_skipped, selected, rate_dropped, decode_failed, frames_written
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rr.StartedAt.UTC().Format(time.RFC3339),
		rr.FinishedAt.UTC().Format(time.RFC3339),
		rr.Root, rr.StartDate, rr.EndDate, rr.Status, rr.Output,
		rr.Summary.ScannedFiles, rr.Summary.ParseSkipped, rr.Summary.Selected,
		rr.Summary.RateDropped, rr.Summary.DecodeFailed, rr.Summary.FramesWritten,
	)
	if err != nil {
		return fmt.Errorf("写入运行记录失败：%w", err)
	}
	return nil
}

// RunRow 是 runs 表的一行（history 子命令消费）。
type RunRow struct {
	ID            int64
	StartedAt     string
	FinishedAt    string
	Root          string
	StartDate     string
	EndDate       string
	Status        string
	Output        string
	FramesWritten int
}

// RecentRuns 按时间倒序返回最近 limit 条记录。
func (s *Store) RecentRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, root, start_date, end_date, status, output, frames_written
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("读取运行记录失败：%w", err)
	}
	defer rows.Close()

	out := make([]RunRow, 0, limit)
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Root,
			&r.StartDate, &r.EndDate, &r.Status, &r.Output, &r.FramesWritten); err != nil {
			return nil, fmt.Errorf("读取运行记录失败：%w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}
