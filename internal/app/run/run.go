package run

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/app"
	"github.com/rangulvers/TimeLapsGenerator/internal/config"
	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/fsx"
	"github.com/rangulvers/TimeLapsGenerator/internal/scan"
)

// Loader 把一张图片解码并缩放到目标分辨率。
// gocv 实现在 infra/frame；测试用假实现即可覆盖流水线语义。
type Loader interface {
	Load(path string, res domain.Resolution) (domain.Frame, error)
}

// Sink 按既定顺序接收帧并写入容器。
//
// 约束：
// - Write 只能由单线程按顺序调用（编码器不支持并发写）
// - Close 恰好一次；Close 之后不允许再 Write
type Sink interface {
	Write(f domain.Frame) error
	Close() error
}

// SinkFactory 在确认有帧要写之后才打开容器（empty/dry-run 不开）。
type SinkFactory func(path string, frameRate float64, res domain.Resolution) (Sink, error)

// Execute 执行一次完整流程：扫描 → 小时配额 → 并行解码（保序）→ 顺序写入。
//
// 错误策略：
// - 可恢复（单帧解码失败且非 strict）：计入 Failures，继续
// - 致命（扫描 IO / 容器打开或写入 / strict 下的解码失败）：终止并标记 failed
func Execute(eff config.EffectiveConfig, loader Loader, newSink SinkFactory, obs Observer) domain.RunReport {
	started := time.Now()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Root:      eff.Root,
		StartDate: eff.Start.String(),
		EndDate:   eff.End.String(),
		DryRun:    eff.DryRun,
		StartedAt: started,
		Failures:  make([]domain.FileFailure, 0, 8),
	}

	// 扫描（剪枝遍历 + 文件名解析 + 前缀过滤）。
	scanStarted := time.Now()
	cands, st, err := scan.Scan(eff.Root, eff.Start, eff.End, eff.Prefixes)
	if err != nil {
		return fail(rr, domain.ErrCodeScanFailed, fmt.Sprintf("扫描失败：%v", err))
	}
	scanDur := time.Since(scanStarted)

	rr.Summary.ScannedFiles = st.Files
	rr.Summary.ParseSkipped = st.ParseSkipped
	rr.Summary.Candidates = len(cands)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files":        st.Files,
			"candidates":   len(cands),
			"parse_skips":  st.ParseSkipped,
			"dirs_visited": st.DirsVisited,
		}, scanDur)
	}

	// 小时配额（单线程、保序；计数器随本次运行丢弃）。
	selStarted := time.Now()
	sel, dropped := app.SelectHourly(cands, eff.MaxPerHour)
	rr.Summary.Selected = len(sel)
	rr.Summary.RateDropped = dropped

	if obs != nil {
		obs.OnPhaseDone("select", map[string]any{
			"selected":     len(sel),
			"rate_dropped": dropped,
		}, time.Since(selStarted))
	}

	// 空选集：明确完成为 empty（不开容器、不产出文件）。
	if len(sel) == 0 {
		rr.Status = domain.StatusEmpty
		return finish(rr)
	}

	// dry-run：只统计会写什么，不解码、不落盘。
	if eff.DryRun {
		rr.Status = domain.StatusOK
		return finish(rr)
	}

	if err := fsx.EnsureDir(eff.OutputDir); err != nil {
		return fail(rr, domain.ErrCodeIOFailed, fmt.Sprintf("创建输出目录失败：%v", err))
	}
	outPath := filepath.Join(eff.OutputDir,
		fmt.Sprintf("%s-%s.mp4", eff.OutputName, started.Format("2006-01-02-15-04-05")))

	sink, err := newSink(outPath, eff.FrameRate, eff.Resolution)
	if err != nil {
		return fail(rr, domain.ErrCodeEncodeFailed, fmt.Sprintf("打开视频容器失败：%v", err))
	}

	// 并行解码：下标标记的任务 + 预分配槽位数组。
	// 每个 worker 只写自己领到的 slots[i]（互不相交，不需要锁）；
	// 汇聚端按槽位顺序消费，保证输出顺序==扫描顺序，与完成先后无关。
	workers := eff.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(sel) {
		workers = len(sel)
	}

	if obs != nil {
		obs.OnPhaseDone("load", map[string]any{
			"workers":      workers,
			"total_frames": len(sel),
		}, 0)
	}

	type frameDone struct {
		idx int
		err error
		dur time.Duration
	}

	slots := make([]slot, len(sel))
	jobs := make(chan int)
	done := make(chan frameDone, len(sel))

	loadStarted := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				oneStarted := time.Now()
				f, e := loader.Load(sel[i].Path, eff.Resolution)
				slots[i] = slot{frame: f, err: e}
				done <- frameDone{idx: i, err: e, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for i := range sel {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(done)
	}()

	completed := 0
	for d := range done {
		completed++
		if obs != nil {
			obs.OnFrameDone(completed, len(sel), sel[d.idx].Path, d.err, d.dur)
		}
	}
	loadDur := time.Since(loadStarted)

	// 顺序写入：Sink 是并行阶段之后唯一的串行化点。
	writeStarted := time.Now()
	for i := range slots {
		if slots[i].err != nil {
			rr.Summary.DecodeFailed++
			rr.Failures = append(rr.Failures, domain.FileFailure{
				Path:      sel[i].Path,
				ErrorCode: domain.ErrCodeDecodeFailed,
				ErrorMsg:  slots[i].err.Error(),
			})
			if eff.Strict {
				closeSlots(slots, i+1)
				_ = sink.Close()
				return fail(rr, domain.ErrCodeDecodeFailed,
					fmt.Sprintf("strict 模式下解码失败：%s", sel[i].Path))
			}
			continue
		}

		if err := sink.Write(slots[i].frame); err != nil {
			_ = slots[i].frame.Close()
			closeSlots(slots, i+1)
			_ = sink.Close()
			// 容器写入失败是致命的；不保证清理半成品文件（非目标）。
			return fail(rr, domain.ErrCodeEncodeFailed, fmt.Sprintf("写入视频失败：%v", err))
		}
		_ = slots[i].frame.Close()
		rr.Summary.FramesWritten++
	}

	if err := sink.Close(); err != nil {
		return fail(rr, domain.ErrCodeEncodeFailed, fmt.Sprintf("关闭视频容器失败：%v", err))
	}

	rr.Output = outPath
	rr.Status = domain.StatusOK
	if eff.FrameRate > 0 {
		rr.Summary.VideoSeconds = float64(rr.Summary.FramesWritten) / eff.FrameRate
	}

	if obs != nil {
		obs.OnPhaseDone("encode", map[string]any{
			"frames": rr.Summary.FramesWritten,
			"failed": rr.Summary.DecodeFailed,
			"output": outPath,
		}, loadDur+time.Since(writeStarted))
	}

	return finish(rr)
}

// slot 是保序并行解码的槽位：下标即输出顺序。
type slot struct {
	frame domain.Frame
	err   error
}

// closeSlots 释放 from 起尚未消费的帧（失败路径上的兜底回收）。
func closeSlots(slots []slot, from int) {
	for i := from; i < len(slots); i++ {
		if slots[i].frame != nil {
			_ = slots[i].frame.Close()
		}
	}
}

func fail(rr domain.RunReport, code, msg string) domain.RunReport {
	rr.Status = domain.StatusFailed
	rr.ErrorCode = code
	rr.ErrorMsg = msg
	return finish(rr)
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr
}
