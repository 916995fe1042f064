package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/config"
	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

func TestProgressUI_StartAndPhases(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)

	ui.OnStart(config.EffectiveConfig{
		Root:       "/data/photos",
		Start:      domain.Date{Year: 2021, Month: 5, Day: 1},
		End:        domain.Date{Year: 2021, Month: 5, Day: 2},
		FrameRate:  30,
		Resolution: domain.Resolution{Width: 1280, Height: 720},
		Workers:    4,
		OutputDir:  "/out",
		OutputName: "video",
	})

	ui.OnPhaseDone("scan", map[string]any{
		"files": 10, "candidates": 8, "parse_skips": 2, "dirs_visited": 5,
	}, 120*time.Millisecond)
	ui.OnPhaseDone("select", map[string]any{
		"selected": 6, "rate_dropped": 2,
	}, time.Millisecond)

	out := buf.String()
	for _, want := range []string{
		"/data/photos",
		"2021-05-01 .. 2021-05-02",
		"1280x720",
		"files=10",
		"parse_skips=2",
		"selected=6",
		"rate_dropped=2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
}

func TestProgressUI_OnlyFailedFramesPrinted(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)

	ui.OnFrameDone(1, 3, "/p/a.jpg", nil, time.Millisecond)
	ui.OnFrameDone(2, 3, "/p/b.jpg", errors.New("无法解码"), time.Millisecond)
	ui.OnFrameDone(3, 3, "/p/c.jpg", nil, time.Millisecond)

	out := buf.String()
	if strings.Contains(out, "/p/a.jpg") || strings.Contains(out, "/p/c.jpg") {
		t.Fatalf("成功帧不应逐条输出：\n%s", out)
	}
	if !strings.Contains(out, "FAIL /p/b.jpg") || !strings.Contains(out, "无法解码") {
		t.Fatalf("失败帧应逐条输出：\n%s", out)
	}
	if ui.ok != 2 || ui.fail != 1 {
		t.Fatalf("计数不正确：ok=%d fail=%d", ui.ok, ui.fail)
	}
}

func TestProgressUI_OnProgressLine(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)

	ui.OnProgress(3, 10, 2, 1, 65*time.Second)

	out := buf.String()
	if !strings.Contains(out, "done=3/10") || !strings.Contains(out, "00:01:05") {
		t.Fatalf("keepalive 行不正确：\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("不应截断：%q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("截断不正确：%q", got)
	}
}
