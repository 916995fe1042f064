package stamp

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// 允许的文件名形态：<prefix>_<14位时间戳>.<ext>，时间戳按 YYYYMMDDHHMMSS 解码。
// prefix 自身允许包含下划线，因此从“最后一个下划线”切分。
const tsLayout = "20060102150405"

// ParseError 表示文件名不符合时间戳命名约定。
// 单个文件的解析失败不允许让扫描中断：上层计数后跳过即可。
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("文件名 %q 无法解析：%s", e.Name, e.Reason)
}

// Parse 从文件名（含扩展名）提取 (prefix, 拍摄时间)。
//
// 失败情形：
// - 没有下划线分隔的时间戳段
// - 时间戳段不是 14 位数字
// - 14 位数字不是合法日历时间（例如 13 月、32 日）
func Parse(name string) (string, time.Time, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	i := strings.LastIndex(base, "_")
	if i < 0 {
		return "", time.Time{}, &ParseError{Name: name, Reason: "缺少下划线分隔的时间戳段"}
	}

	ts := base[i+1:]
	if len(ts) != 14 || !allDigits(ts) {
		return "", time.Time{}, &ParseError{Name: name, Reason: "时间戳段必须是 14 位数字（YYYYMMDDHHMMSS）"}
	}

	t, err := time.Parse(tsLayout, ts)
	if err != nil {
		return "", time.Time{}, &ParseError{Name: name, Reason: "时间戳不是合法的日历时间"}
	}

	return base[:i], t, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
