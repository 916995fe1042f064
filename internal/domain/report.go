package domain

import (
	"sort"
	"time"
)

const (
	// StatusOK 表示本次运行产出了视频（或 dry-run 正常完成）。
	StatusOK = "ok"
	// StatusEmpty 表示选集为空：不打开容器、不产出文件，但运行本身成功。
	StatusEmpty = "empty"
	// StatusFailed 表示运行被致命错误终止。
	StatusFailed = "failed"
)

const (
	ErrCodeConfigInvalid = "config_invalid"
	ErrCodeScanFailed    = "scan_failed"
	ErrCodeDecodeFailed  = "decode_failed"
	ErrCodeEncodeFailed  = "encode_failed"
	ErrCodeIOFailed      = "io_failed"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
//
// 约定：
// - 可恢复问题（解码失败且非 strict）进入 Failures，不改变 Status
// - 致命错误写 ErrorCode/ErrorMsg 且 Status=failed
type RunReport struct {
	Root      string `json:"root"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	DryRun    bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Output 为空表示本次没有产出视频（empty/dry-run/failed）。
	Output string `json:"output"`
	Status string `json:"status"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Summary  Summary       `json:"summary"`
	Failures []FileFailure `json:"failures"`
}

// Summary 由 run 层在各阶段累加（不是 Finalize 推导的）。
type Summary struct {
	ScannedFiles  int     `json:"scanned_files"`
	ParseSkipped  int     `json:"parse_skipped"`
	Candidates    int     `json:"candidates"`
	Selected      int     `json:"selected"`
	RateDropped   int     `json:"rate_dropped"`
	DecodeFailed  int     `json:"decode_failed"`
	FramesWritten int     `json:"frames_written"`
	VideoSeconds  float64 `json:"video_seconds"`
}

// FileFailure 是单个文件级的失败记录（带具体路径，便于用户逐个修复）。
type FileFailure struct {
	Path      string `json:"path"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) Failures 稳定排序：按 Path 字典序；Path=="" 的条目排在最后
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Failures == nil {
		r.Failures = []FileFailure{}
	}
	sort.SliceStable(r.Failures, func(i, j int) bool {
		a := r.Failures[i].Path
		b := r.Failures[j].Path
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})
}
