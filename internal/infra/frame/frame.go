package frame

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
)

// LoadError 表示单张图片解码/缩放失败（带具体路径）。
// 是否致命由上层策略决定（默认跳过继续，strict 升级为致命）。
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("加载图片 %q 失败：%v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func IsLoad(err error) bool {
	var e *LoadError
	return errors.As(err, &e)
}

// Image 持有一帧解码后的像素缓冲（gocv.Mat 由 OpenCV 分配，必须显式 Close）。
type Image struct {
	Mat gocv.Mat
}

func (f *Image) Close() error { return f.Mat.Close() }

// Loader 用 gocv 实现 run.Loader：解码 + 拉伸缩放到目标分辨率。
type Loader struct{}

// Load 解码 path 并缩放到 res。
//
// 约束：
// - 缩放是拉伸（不裁切），无论原图宽高比如何，输出恰好是 res
// - 失败返回 *LoadError，不做重试
func (Loader) Load(path string, res domain.Resolution) (domain.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		_ = mat.Close()
		return nil, &LoadError{Path: path, Err: errors.New("无法解码（文件损坏或不是图片）")}
	}

	if mat.Cols() != res.Width || mat.Rows() != res.Height {
		gocv.Resize(mat, &mat, image.Pt(res.Width, res.Height), 0, 0, gocv.InterpolationLinear)
	}

	return &Image{Mat: mat}, nil
}
