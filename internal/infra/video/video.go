package video

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/rangulvers/TimeLapsGenerator/internal/app/run"
	"github.com/rangulvers/TimeLapsGenerator/internal/domain"
	"github.com/rangulvers/TimeLapsGenerator/internal/infra/frame"
)

// fourCC 固定为 mp4v：产物是单个 mp4 容器文件。
const fourCC = "mp4v"

// EncodeError 表示容器打开或写入失败。对整次运行是致命的：
// 不尝试恢复，也不保证清理半成品文件。
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("视频容器 %q 写入失败：%v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func IsEncode(err error) bool {
	var e *EncodeError
	return errors.As(err, &e)
}

// Writer 用 gocv.VideoWriter 实现 run.Sink。
//
// 约束：
// - Write 只能由单线程按顺序调用（编码器不支持并发写）
// - Close 恰好一次
type Writer struct {
	path string
	vw   *gocv.VideoWriter
}

// Open 打开输出容器（恰好一次）。帧率与分辨率在打开时固定，
// 之后写入的每一帧都必须恰好是该分辨率（由 Loader 的缩放保证）。
func Open(path string, frameRate float64, res domain.Resolution) (run.Sink, error) {
	vw, err := gocv.VideoWriterFile(path, fourCC, frameRate, res.Width, res.Height, true)
	if err != nil {
		return nil, &EncodeError{Path: path, Err: err}
	}
	if !vw.IsOpened() {
		_ = vw.Close()
		return nil, &EncodeError{Path: path, Err: errors.New("编码器未能打开输出文件")}
	}
	return &Writer{path: path, vw: vw}, nil
}

// Write 追加一帧。只接受 frame.Image（gocv 管线内唯一的帧载体）。
func (w *Writer) Write(f domain.Frame) error {
	img, ok := f.(*frame.Image)
	if !ok {
		return &EncodeError{Path: w.path, Err: fmt.Errorf("不支持的帧类型 %T", f)}
	}
	if err := w.vw.Write(img.Mat); err != nil {
		return &EncodeError{Path: w.path, Err: err}
	}
	return nil
}

// Close 结束容器写入（flush + 释放编码器）。
func (w *Writer) Close() error {
	if err := w.vw.Close(); err != nil {
		return &EncodeError{Path: w.path, Err: err}
	}
	return nil
}
