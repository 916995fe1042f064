package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
	"github.com/rangulvers/TimeLapsGenerator/internal/stamp"
)

// 通过可替换的函数指针，让测试能模拟目录读取失败。
var readDirFunc = os.ReadDir

// Stats 是一次扫描的过程统计。
//
// DirsVisited 统计实际 ReadDir 过的目录数（含 root）：
// 剪枝正确性的可观测口径——完全落在范围外的年/月/日子树不会被计入。
type Stats struct {
	DirsVisited  int
	Files        int // 命中日期目录后实际枚举过的文件数（仅图片扩展名）
	ParseSkipped int // 文件名解析失败而跳过的文件数
}

// Scan 扫描 root 下 年/月/日 分层目录，产出时间升序的候选集。
//
// 规则（硬约束）：
// - 年目录必须是 4 位数字；月/日目录必须是数字。非数字命名视为不属于
//   日期层级，静默跳过（不计入任何统计）。
// - 完全落在 [start,end] 之外的年/月/日子树不进入（剪枝）。
// - 命中日期目录内：只看 .jpg/.jpeg/.png；文件名解析失败计数后跳过；
//   解析出的日期必须仍落在 [start,end]；prefixes 非空时要求前缀精确命中。
//
// 注意：扫描阶段只看目录名与文件名，不读文件内容。
func Scan(root string, start, end domain.Date, prefixes []string) ([]domain.Candidate, Stats, error) {
	root = filepath.Clean(root)

	accept := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			accept[p] = struct{}{}
		}
	}

	st := Stats{}
	cands := make([]domain.Candidate, 0, 128)

	years, err := readDirFunc(root)
	if err != nil {
		return nil, Stats{}, err
	}
	st.DirsVisited++

	for _, ye := range sortedNumericDirs(years, 4) {
		y := ye.value
		if y < start.Year || y > end.Year {
			continue
		}

		yearPath := filepath.Join(root, ye.name)
		months, err := readDirFunc(yearPath)
		if err != nil {
			return nil, Stats{}, err
		}
		st.DirsVisited++

		for _, me := range sortedNumericDirs(months, 0) {
			m := me.value
			if (y == start.Year && m < start.Month) || (y == end.Year && m > end.Month) {
				continue
			}

			monthPath := filepath.Join(yearPath, me.name)
			days, err := readDirFunc(monthPath)
			if err != nil {
				return nil, Stats{}, err
			}
			st.DirsVisited++

			for _, de := range sortedNumericDirs(days, 0) {
				date := domain.Date{Year: y, Month: m, Day: de.value}
				if date.Compare(start) < 0 || date.Compare(end) > 0 {
					continue
				}

				dayPath := filepath.Join(monthPath, de.name)
				files, err := readDirFunc(dayPath)
				if err != nil {
					return nil, Stats{}, err
				}
				st.DirsVisited++

				for _, fe := range files {
					if fe.IsDir() {
						continue
					}
					name := fe.Name()
					if !isImageExt(strings.ToLower(filepath.Ext(name))) {
						continue
					}
					st.Files++

					prefix, taken, err := stamp.Parse(name)
					if err != nil {
						var pe *stamp.ParseError
						if errors.As(err, &pe) {
							st.ParseSkipped++
							continue
						}
						return nil, Stats{}, err
					}

					// 目录层只保证“目录名”在范围内；文件名里的日期是最终口径。
					d := domain.DateOf(taken)
					if d.Compare(start) < 0 || d.Compare(end) > 0 {
						continue
					}
					if len(accept) > 0 {
						if _, ok := accept[prefix]; !ok {
							continue
						}
					}

					cands = append(cands, domain.Candidate{
						Taken:  taken,
						Prefix: prefix,
						Path:   filepath.Join(dayPath, name),
					})
				}
			}
		}
	}

	// 强制稳定输出：目录遍历序在零填充命名下已经是时间序，
	// 这里仍显式排序，避免未填充目录名（"9" vs "10"）带来乱序。
	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].Taken.Equal(cands[j].Taken) {
			return cands[i].Taken.Before(cands[j].Taken)
		}
		return cands[i].Path < cands[j].Path
	})
	return cands, st, nil
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}

type numDir struct {
	name  string
	value int
}

// sortedNumericDirs 过滤出数字命名的子目录并按数值升序返回。
// width>0 时要求目录名恰好是 width 位（年目录用 4，避免把 "20" 当成年份）。
func sortedNumericDirs(entries []fs.DirEntry, width int) []numDir {
	out := make([]numDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if width > 0 && len(name) != width {
			continue
		}
		v, err := strconv.Atoi(name)
		if err != nil || v < 0 {
			continue
		}
		out = append(out, numDir{name: name, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value < out[j].value
		}
		return out[i].name < out[j].name
	})
	return out
}
