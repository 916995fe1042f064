package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/app/run"
	"github.com/rangulvers/TimeLapsGenerator/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 帧很多：只对失败帧逐条输出，成功帧靠 keepalive 行汇总
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "生成"
	if eff.DryRun {
		mode = "dry-run (不解码/不写视频)"
	}

	fmt.Fprintf(p.w, "[%s] TimeLapsGenerator run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  root: %s\n", eff.Root)
	fmt.Fprintf(p.w, "  mode: %s\n", mode)
	fmt.Fprintf(p.w, "  date_range: %s .. %s\n", eff.Start, eff.End)
	fmt.Fprintf(p.w, "  prefixes: %s\n", formatPrefixes(eff.Prefixes))
	fmt.Fprintf(p.w, "  max_per_hour: %s\n", formatMaxPerHour(eff.MaxPerHour))
	fmt.Fprintf(p.w, "  frame_rate: %g\n", eff.FrameRate)
	fmt.Fprintf(p.w, "  resolution: %s\n", eff.Resolution)
	fmt.Fprintf(p.w, "  workers: %d\n", eff.Workers)
	fmt.Fprintf(p.w, "  strict: %s\n", onOff(eff.Strict))
	fmt.Fprintf(p.w, "  output_dir: %s\n", eff.OutputDir)
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d candidates=%d parse_skips=%d dirs=%d (%s)\n",
			intField(fields, "files"),
			intField(fields, "candidates"),
			intField(fields, "parse_skips"),
			intField(fields, "dirs_visited"),
			formatShortDuration(dur),
		)
	case "select":
		fmt.Fprintf(p.w, "选片: selected=%d rate_dropped=%d (%s)\n",
			intField(fields, "selected"), intField(fields, "rate_dropped"), formatShortDuration(dur),
		)
	case "load":
		p.total = intField(fields, "total_frames")
		fmt.Fprintf(p.w, "解码: workers=%d total_frames=%d\n",
			intField(fields, "workers"), p.total,
		)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "encode":
		fmt.Fprintf(p.w, "写入: frames=%d failed=%d -> %v (%s)\n",
			intField(fields, "frames"), intField(fields, "failed"), fields["output"], formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFrameDone(idx, total int, path string, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	if err != nil {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s: %s (%s)\n",
			idx, total, path, truncate(err.Error(), 160), formatShortDuration(dur),
		)
		p.lastPrinted = time.Now()
	} else {
		p.ok++
	}

	// 最后一帧完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) OnProgress(done, total, ok, fail int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d elapsed=%s\n",
		done, total, ok, fail, formatElapsed(elapsed),
	)
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				// 已完成：安全退出（OnFrameDone 会 close stopCh，但这里也做兜底）。
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				stale := p.total > 0 && time.Since(p.lastPrinted) > threshold
				done, total, ok, fail := p.done, p.total, p.ok, p.fail
				elapsed := time.Since(p.startedAt)
				p.mu.Unlock()

				if stale {
					p.OnProgress(done, total, ok, fail, elapsed)
				}
			case <-p.stopCh:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatPrefixes(xs []string) string {
	if len(xs) == 0 {
		return "(全部)"
	}
	return strings.Join(xs, ",")
}

func formatMaxPerHour(n int) string {
	if n <= 0 {
		return "(不限)"
	}
	return fmt.Sprintf("%d", n)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
