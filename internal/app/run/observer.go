package run

import (
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/config"
)

// Observer 用于把“运行进度/阶段/单帧结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：OnFrameDone 可能来自多个 goroutine 的
//   完成汇聚，但保证串行调用（由收集循环单线程派发）。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFrameDone 在某一帧解码完成（成功或失败）时调用。
	// idx 是完成序号（1..total），不是帧在选集中的位置。
	OnFrameDone(idx, total int, path string, err error, dur time.Duration)
	// OnProgress 用于 keepalive（通常由 CLI 自己 ticker 触发；run 层不强制调用）。
	OnProgress(done, total, ok, fail int, elapsed time.Duration)
}
