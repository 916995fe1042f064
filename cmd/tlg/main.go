package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rangulvers/TimeLapsGenerator/internal/app/run"
	"github.com/rangulvers/TimeLapsGenerator/internal/config"
	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/catalog"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/frame"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/fsx"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/video"
)

func main() {
	// .env 是可选的：只为 TLG_* 环境变量提供一个落脚点。
	_ = godotenv.Load()

	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "history":
		if code := historyCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, ra)
	if err != nil {
		emitReport(reportForConfigError(ra, err))
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.Execute(eff, frame.Loader{}, video.Open, obs)

	// 非 dry-run：report.json 与运行目录都要落盘；任一失败只降级为 warning。
	if !eff.DryRun {
		if err := writeReportFile(eff.OutputDir, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
		}
		if eff.Catalog {
			recordRun(eff.OutputDir, rr)
		}
	}

	emitReport(rr)
	if rr.Status == domain.StatusFailed {
		return 1
	}
	return 0
}

func historyCmd(args []string) int {
	limit := 10
	dir := ""

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case isHelp(a):
			printHistoryUsage()
			return 0
		case a == "--limit":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "参数错误：--limit 需要一个值")
				return 2
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "参数错误：--limit 必须是正整数，实际是 %q\n", args[i])
				return 2
			}
			limit = n
		case strings.HasPrefix(a, "-"):
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n", a)
			return 2
		default:
			if dir != "" {
				fmt.Fprintf(os.Stderr, "参数错误：重复的输出目录：%q 与 %q\n", dir, a)
				return 2
			}
			dir = a
		}
	}

	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(config.EnvOutputDir))
	}
	if dir == "" {
		dir = config.DefaultOutputDir
	}

	store, err := catalog.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开运行目录失败：%v\n", err)
		return 1
	}
	defer store.Close()

	rows, err := store.RecentRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取运行记录失败：%v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "还没有运行记录。")
		return 0
	}

	for _, r := range rows {
		out := r.Output
		if out == "" {
			out = "-"
		}
		fmt.Fprintf(os.Stdout, "#%d %s [%s..%s] %s frames=%d %s\n",
			r.ID, r.StartedAt, r.StartDate, r.EndDate, r.Status, r.FramesWritten, out)
	}
	return 0
}

// parseRunArgs 手写解析：需要保留“是否显式指定”的信息，flag 包做不到这一点。
func parseRunArgs(args []string) (config.CLIArgs, error) {
	ra := config.CLIArgs{}

	// 同时支持 "--flag value" 与 "--flag=value" 两种写法。
	value := func(i *int, arg, name string) (string, error) {
		if strings.HasPrefix(arg, name+"=") {
			return strings.TrimPrefix(arg, name+"="), nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--start-date" || strings.HasPrefix(a, "--start-date="):
			v, err := value(&i, a, "--start-date")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.StartDate = v
		case a == "--end-date" || strings.HasPrefix(a, "--end-date="):
			v, err := value(&i, a, "--end-date")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.EndDate = v
		case a == "--image-prefixes" || strings.HasPrefix(a, "--image-prefixes="):
			v, err := value(&i, a, "--image-prefixes")
			if err != nil {
				return config.CLIArgs{}, err
			}
			// 允许重复给出，也允许一次用逗号给多个。
			for _, p := range strings.Split(v, ",") {
				if strings.TrimSpace(p) != "" {
					ra.Prefixes = append(ra.Prefixes, strings.TrimSpace(p))
				}
			}
			ra.PrefixesSet = true
		case a == "--max-images-per-hour" || strings.HasPrefix(a, "--max-images-per-hour="):
			v, err := value(&i, a, "--max-images-per-hour")
			if err != nil {
				return config.CLIArgs{}, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--max-images-per-hour 必须是整数，实际是 %q", v)
			}
			ra.MaxPerHour = n
			ra.MaxPerHourSet = true
		case a == "--frame-rate" || strings.HasPrefix(a, "--frame-rate="):
			v, err := value(&i, a, "--frame-rate")
			if err != nil {
				return config.CLIArgs{}, err
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--frame-rate 必须是数字，实际是 %q", v)
			}
			ra.FrameRate = f
			ra.FrameRateSet = true
		case a == "--output-resolution" || strings.HasPrefix(a, "--output-resolution="):
			v, err := value(&i, a, "--output-resolution")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.Resolution = v
			ra.ResolutionSet = true
		case a == "--workers" || strings.HasPrefix(a, "--workers="):
			v, err := value(&i, a, "--workers")
			if err != nil {
				return config.CLIArgs{}, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--workers 必须是整数，实际是 %q", v)
			}
			ra.Workers = n
			ra.WorkersSet = true
		case a == "--output-name" || strings.HasPrefix(a, "--output-name="):
			v, err := value(&i, a, "--output-name")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.OutputName = v
			ra.OutputNameSet = true
		case a == "--strict" || strings.HasPrefix(a, "--strict="):
			v, err := boolFlag(a, "--strict")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.Strict = v
			ra.StrictSet = true
		case a == "--dry-run" || strings.HasPrefix(a, "--dry-run="):
			v, err := boolFlag(a, "--dry-run")
			if err != nil {
				return config.CLIArgs{}, err
			}
			ra.DryRun = v
			ra.DryRunSet = true
		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Root != "" {
				return config.CLIArgs{}, fmt.Errorf("重复的 root：%q 与 %q", ra.Root, a)
			}
			ra.Root = a
		}
	}

	if strings.TrimSpace(ra.Root) == "" {
		return config.CLIArgs{}, fmt.Errorf("缺少必填参数：root 目录")
	}
	return ra, nil
}

func boolFlag(arg, name string) (bool, error) {
	if arg == name {
		return true, nil
	}
	switch strings.TrimPrefix(arg, name+"=") {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s 只能是 true 或 false", name)
	}
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  tlg run <root> --start-date YYYY-MM-DD --end-date YYYY-MM-DD [flags]
  tlg history [output_dir] [--limit N]

命令：
  run      从 年/月/日 分层的图片目录生成延时视频
  history  查看最近的运行记录

使用 "tlg run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  tlg run <root> --start-date YYYY-MM-DD --end-date YYYY-MM-DD [flags]

参数：
  --start-date           起始日期（必填，闭区间）
  --end-date             结束日期（必填，闭区间）
  --image-prefixes       接受的文件名前缀，可重复或逗号分隔（缺省接受全部）
  --max-images-per-hour  每小时最多取多少张（正整数；缺省不限）
  --frame-rate           输出帧率（默认 30）
  --output-resolution    输出分辨率 WIDTHxHEIGHT（默认 1280x720）
  --workers              解码 worker 数（默认 4）
  --output-name          输出文件基名（默认 video）
  --strict               解码失败时终止（默认跳过并继续）
  --dry-run              只扫描与选片，不解码、不写视频
  -h, --help             显示帮助

更多默认值可放在 <root>/tlg.json 或 TLG_* 环境变量（支持 .env）。
`)
}

func printHistoryUsage() {
	fmt.Fprint(os.Stdout, `用法：
  tlg history [output_dir] [--limit N]

从 <output_dir>/runs.db 读取最近的运行记录（默认目录 videos，默认 10 条）。
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		switch rr.Status {
		case domain.StatusOK:
			if rr.Output != "" {
				fmt.Fprintf(os.Stdout, "完成：%s（frames=%d，时长 %.2fs）\n",
					rr.Output, rr.Summary.FramesWritten, rr.Summary.VideoSeconds)
			} else {
				fmt.Fprintf(os.Stdout, "完成（dry-run）：selected=%d rate_dropped=%d parse_skipped=%d\n",
					rr.Summary.Selected, rr.Summary.RateDropped, rr.Summary.ParseSkipped)
			}
		case domain.StatusEmpty:
			fmt.Fprintln(os.Stdout, "完成：没有命中任何图片，未生成视频。")
		case domain.StatusFailed:
			fmt.Fprintf(os.Stdout, "失败：%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}

		for _, f := range rr.Failures {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", f.Path, f.ErrorCode, f.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：status=%s frames=%d decode_failed=%d parse_skipped=%d\n",
		rr.Status, rr.Summary.FramesWritten, rr.Summary.DecodeFailed, rr.Summary.ParseSkipped)
}

func reportForConfigError(ra config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Root:       ra.Root,
		StartDate:  ra.StartDate,
		EndDate:    ra.EndDate,
		DryRun:     ra.DryRunSet && ra.DryRun,
		StartedAt:  now,
		FinishedAt: now,
		Status:     domain.StatusFailed,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func writeReportFile(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	// empty/failed 的运行可能还没创建过输出目录。
	if err := fsx.EnsureDir(dir); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, "report.json", b)
}

func recordRun(dir string, rr domain.RunReport) {
	store, err := catalog.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告：%v\n", err)
		return
	}
	defer store.Close()
	if err := store.RecordRun(rr); err != nil {
		fmt.Fprintf(os.Stderr, "警告：%v\n", err)
	}
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
