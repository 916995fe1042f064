package main

import (
	"testing"
)

func TestParseRunArgs_AllFlags(t *testing.T) {
	ra, err := parseRunArgs([]string{
		"/data/photos",
		"--start-date", "2021-05-01",
		"--end-date=2021-05-02",
		"--image-prefixes", "cam,door",
		"--image-prefixes=gate",
		"--max-images-per-hour", "6",
		"--frame-rate=24",
		"--output-resolution", "1920x1080",
		"--workers=2",
		"--output-name", "lapse",
		"--strict",
		"--dry-run=false",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if ra.Root != "/data/photos" {
		t.Fatalf("root 不正确：%q", ra.Root)
	}
	if ra.StartDate != "2021-05-01" || ra.EndDate != "2021-05-02" {
		t.Fatalf("日期不正确：%q..%q", ra.StartDate, ra.EndDate)
	}
	// 逗号与重复给出的前缀合并为一个集合。
	if len(ra.Prefixes) != 3 || ra.Prefixes[0] != "cam" || ra.Prefixes[2] != "gate" {
		t.Fatalf("prefixes 不正确：%v", ra.Prefixes)
	}
	if !ra.PrefixesSet {
		t.Fatal("PrefixesSet 应为 true")
	}
	if ra.MaxPerHour != 6 || !ra.MaxPerHourSet {
		t.Fatalf("max-per-hour 不正确：%d", ra.MaxPerHour)
	}
	if ra.FrameRate != 24 || !ra.FrameRateSet {
		t.Fatalf("frame-rate 不正确：%v", ra.FrameRate)
	}
	if ra.Resolution != "1920x1080" || !ra.ResolutionSet {
		t.Fatalf("resolution 不正确：%q", ra.Resolution)
	}
	if ra.Workers != 2 || !ra.WorkersSet {
		t.Fatalf("workers 不正确：%d", ra.Workers)
	}
	if ra.OutputName != "lapse" || !ra.OutputNameSet {
		t.Fatalf("output-name 不正确：%q", ra.OutputName)
	}
	if !ra.Strict || !ra.StrictSet {
		t.Fatal("--strict 应解析为 true")
	}
	// 显式 --dry-run=false：值为 false 但 Set 为 true。
	if ra.DryRun || !ra.DryRunSet {
		t.Fatal("--dry-run=false 解析不正确")
	}
}

func TestParseRunArgs_MinimalDefaults(t *testing.T) {
	ra, err := parseRunArgs([]string{"/data/photos", "--start-date", "2021-05-01", "--end-date", "2021-05-02"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 未出现的 flag 必须保持“未显式指定”。
	if ra.PrefixesSet || ra.MaxPerHourSet || ra.FrameRateSet || ra.ResolutionSet ||
		ra.WorkersSet || ra.OutputNameSet || ra.StrictSet || ra.DryRunSet {
		t.Fatalf("不应有 Set 标记：%+v", ra)
	}
}

func TestParseRunArgs_Rejects(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"缺少 root", []string{"--start-date", "2021-05-01", "--end-date", "2021-05-02"}},
		{"重复 root", []string{"/a", "/b"}},
		{"未知参数", []string{"/a", "--bogus"}},
		{"缺值", []string{"/a", "--start-date"}},
		{"非整数配额", []string{"/a", "--max-images-per-hour", "six"}},
		{"非数字帧率", []string{"/a", "--frame-rate", "fast"}},
		{"非整数 workers", []string{"/a", "--workers=two"}},
		{"非法布尔", []string{"/a", "--strict=maybe"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := parseRunArgs(c.args); err == nil {
				t.Fatalf("期望 %v 被拒绝，实际通过", c.args)
			}
		})
	}
}

func TestBoolFlag(t *testing.T) {
	if v, err := boolFlag("--strict", "--strict"); err != nil || !v {
		t.Fatalf("裸 flag 应为 true：v=%v err=%v", v, err)
	}
	if v, err := boolFlag("--strict=false", "--strict"); err != nil || v {
		t.Fatalf("=false 应为 false：v=%v err=%v", v, err)
	}
	if _, err := boolFlag("--strict=1", "--strict"); err == nil {
		t.Fatal("非 true/false 应被拒绝")
	}
}
