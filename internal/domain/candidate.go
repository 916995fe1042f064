package domain

import (
	"fmt"
	"time"
)

// Candidate 描述扫描阶段产出的一张候选图片。
//
// 不变量（实现必须遵守）：
// - Path 必须是 clean + absolute
// - Taken 可由文件名经 stamp.Parse 确定性还原（扫描阶段已完成解析）
// - 扫描阶段只看文件名，不读文件内容
type Candidate struct {
	Taken  time.Time // 文件名里的拍摄时间（秒级精度，按字面解释，不做时区换算）
	Prefix string
	Path   string
}

// Date 是日期级粒度的比较单元；扫描范围用闭区间 [Start, End] 表达。
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf 取时间的日期部分。
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Compare 返回 -1/0/+1（d 早于/等于/晚于 o）。
func (d Date) Compare(o Date) int {
	if d.Year != o.Year {
		return sign(d.Year - o.Year)
	}
	if d.Month != o.Month {
		return sign(d.Month - o.Month)
	}
	return sign(d.Day - o.Day)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// HourKey 是小时配额的计数键：同一 (年,月,日,时) 共享一个预算。
type HourKey struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// HourKeyOf 取时间所属的小时桶。
func HourKeyOf(t time.Time) HourKey {
	return HourKey{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour()}
}

// Resolution 是输出分辨率：Loader 的缩放目标，同时是 Sink 的打开参数。
// 两处消费同一个值，“帧尺寸==容器尺寸”由构造即成立。
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Frame 是一帧已缩放到目标分辨率的像素缓冲。
//
// 所有权：由 Loader 创建；写入 Sink 之后由流水线负责 Close（恰好一次）。
// Frame 没有身份，只有它在选集中的位置。
type Frame interface {
	Close() error
}
