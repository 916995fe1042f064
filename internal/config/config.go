package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

const (
	// ErrCodeInvalid 表示参数或配置文件不合法（运行前拒绝，不开始任何扫描）。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultWorkers 是解码 worker 池的内置默认值。
	DefaultWorkers = 4
	// DefaultFrameRate 是输出帧率的内置默认值。
	DefaultFrameRate = 30
	// DefaultResolution 是输出分辨率的内置默认值。
	DefaultResolution = "1280x720"
	// DefaultOutputDir / DefaultOutputName 决定产物命名：
	// <output_dir>/<output_name>-<时间戳>.mp4
	DefaultOutputDir  = "videos"
	DefaultOutputName = "video"
)

// 配置的环境变量层（可由 .env 经 godotenv 注入）。
const (
	EnvOutputDir = "TLG_OUTPUT_DIR"
	EnvWorkers   = "TLG_WORKERS"
	EnvCatalog   = "TLG_CATALOG"
)

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现
// （例如 --strict=false 必须能覆盖 tlg.json 里的 strict=true）。
type CLIArgs struct {
	Root string

	StartDate string
	EndDate   string

	Prefixes    []string
	PrefixesSet bool

	MaxPerHour    int
	MaxPerHourSet bool

	FrameRate    float64
	FrameRateSet bool

	Resolution    string
	ResolutionSet bool

	Workers    int
	WorkersSet bool

	OutputName    string
	OutputNameSet bool

	Strict    bool
	StrictSet bool

	DryRun    bool
	DryRunSet bool
}

// FileConfig 对应 <root>/tlg.json 的解析结构（全部可选）。
type FileConfig struct {
	Prefixes   []string `json:"prefixes"`
	MaxPerHour int      `json:"max_per_hour"`
	FrameRate  float64  `json:"frame_rate"`
	Resolution string   `json:"resolution"`
	Workers    int      `json:"workers"`
	OutputDir  string   `json:"output_dir"`
	OutputName string   `json:"output_name"`
	Strict     *bool    `json:"strict"`
	Catalog    *bool    `json:"catalog"`
}

// EffectiveConfig 是合并并校验后的最终配置（实现层直接消费，
// 不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Root string

	Start domain.Date
	End   domain.Date

	// Prefixes 为空 = 接受全部前缀。
	Prefixes []string
	// MaxPerHour<=0 = 不限流。
	MaxPerHour int

	FrameRate  float64
	Resolution domain.Resolution

	Workers int
	Strict  bool
	DryRun  bool

	OutputDir  string
	OutputName string

	// Catalog 控制是否把运行结果记入 <output_dir>/runs.db。
	Catalog bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 合并 CLI 参数、<root>/tlg.json（可选）、环境变量与内置默认值。
//
// 覆盖优先级（固定）：CLI > tlg.json > 环境变量 > 默认值。
// 所有校验在这里完成：非法的配置在任何扫描开始前就被拒绝。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	if strings.TrimSpace(cli.Root) == "" {
		return EffectiveConfig{}, invalid(fmt.Errorf("缺少必填参数：root 目录"))
	}

	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	root := absCleanFrom(cwdAbs, cli.Root)

	fc, err := readFileConfig(filepath.Join(root, "tlg.json"))
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	eff := EffectiveConfig{Root: root}

	// 日期范围（必填，日期级粒度，闭区间）。
	eff.Start, err = parseDate(cli.StartDate, "--start-date")
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	eff.End, err = parseDate(cli.EndDate, "--end-date")
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	if eff.Start.Compare(eff.End) > 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("起始日期 %s 晚于结束日期 %s", eff.Start, eff.End))
	}

	// 前缀：CLI > 配置文件 > 空（接受全部）。
	switch {
	case cli.PrefixesSet:
		eff.Prefixes = cleanPrefixes(cli.Prefixes)
	default:
		eff.Prefixes = cleanPrefixes(fc.Prefixes)
	}

	// 小时配额：未指定 = 不限流。
	switch {
	case cli.MaxPerHourSet:
		eff.MaxPerHour = cli.MaxPerHour
	default:
		eff.MaxPerHour = fc.MaxPerHour
	}
	if cli.MaxPerHourSet && eff.MaxPerHour <= 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("--max-images-per-hour 必须是正整数，实际是 %d", eff.MaxPerHour))
	}

	// 帧率。
	switch {
	case cli.FrameRateSet:
		eff.FrameRate = cli.FrameRate
	case fc.FrameRate != 0:
		eff.FrameRate = fc.FrameRate
	default:
		eff.FrameRate = DefaultFrameRate
	}
	if eff.FrameRate <= 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("帧率必须是正数，实际是 %v", eff.FrameRate))
	}

	// 分辨率。
	resStr := DefaultResolution
	switch {
	case cli.ResolutionSet:
		resStr = cli.Resolution
	case strings.TrimSpace(fc.Resolution) != "":
		resStr = fc.Resolution
	}
	eff.Resolution, err = ParseResolution(resStr)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	// worker 数：CLI > 配置文件 > 环境变量 > 默认。
	switch {
	case cli.WorkersSet:
		eff.Workers = cli.Workers
	case fc.Workers != 0:
		eff.Workers = fc.Workers
	case envInt(EnvWorkers) != 0:
		eff.Workers = envInt(EnvWorkers)
	default:
		eff.Workers = DefaultWorkers
	}
	if eff.Workers < 1 {
		return EffectiveConfig{}, invalid(fmt.Errorf("workers 必须 >= 1，实际是 %d", eff.Workers))
	}

	// 输出目录/文件名。
	switch {
	case strings.TrimSpace(fc.OutputDir) != "":
		eff.OutputDir = fc.OutputDir
	case strings.TrimSpace(os.Getenv(EnvOutputDir)) != "":
		eff.OutputDir = os.Getenv(EnvOutputDir)
	default:
		eff.OutputDir = DefaultOutputDir
	}
	if !filepath.IsAbs(eff.OutputDir) {
		eff.OutputDir = filepath.Join(cwdAbs, eff.OutputDir)
	}
	switch {
	case cli.OutputNameSet && strings.TrimSpace(cli.OutputName) != "":
		eff.OutputName = cli.OutputName
	case strings.TrimSpace(fc.OutputName) != "":
		eff.OutputName = fc.OutputName
	default:
		eff.OutputName = DefaultOutputName
	}

	// 解码失败策略：默认跳过继续；strict 升级为致命。
	switch {
	case cli.StrictSet:
		eff.Strict = cli.Strict
	case fc.Strict != nil:
		eff.Strict = *fc.Strict
	}

	if cli.DryRunSet {
		eff.DryRun = cli.DryRun
	}

	// 运行目录（catalog）：默认开启，配置文件或环境变量可关。
	eff.Catalog = true
	switch {
	case fc.Catalog != nil:
		eff.Catalog = *fc.Catalog
	case strings.TrimSpace(os.Getenv(EnvCatalog)) != "":
		eff.Catalog = envBool(EnvCatalog)
	}

	return eff, nil
}

// ParseResolution 解析 "WIDTHxHEIGHT"（两个正整数）。
func ParseResolution(s string) (domain.Resolution, error) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 2 {
		return domain.Resolution{}, fmt.Errorf("分辨率 %q 不合法，期望 WIDTHxHEIGHT（例如 1280x720）", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("分辨率 %q 的宽度不是整数", s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("分辨率 %q 的高度不是整数", s)
	}
	if w <= 0 || h <= 0 {
		return domain.Resolution{}, fmt.Errorf("分辨率 %q 必须是两个正整数", s)
	}
	return domain.Resolution{Width: w, Height: h}, nil
}

func parseDate(s, flag string) (domain.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}, fmt.Errorf("缺少必填参数 %s（YYYY-MM-DD）", flag)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return domain.Date{}, fmt.Errorf("%s 的值 %q 不是合法日期（YYYY-MM-DD）", flag, s)
	}
	return domain.DateOf(t), nil
}

func readFileConfig(path string) (FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// tlg.json 是可选的。
			return FileConfig{}, nil
		}
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("配置文件 %q 无效：%w", path, err)
	}
	return fc, nil
}

func cleanPrefixes(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func absCleanFrom(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

func invalid(err error) *Error {
	return &Error{Code: ErrCodeInvalid, Err: err}
}
