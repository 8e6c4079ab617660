// Package imgx 是图片编解码能力的边界：batch 引擎只依赖这里的 Decoder/Encoder 接口，
// 不关心具体 codec 实现。
package imgx

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
)

// Decoded 是解码后的像素数据（含 mode 与尺寸，便于日志/诊断）。
type Decoded struct {
	Image  image.Image
	Mode   string // "RGB" | "RGBA" | "L" | "YCbCr" | ...
	Width  int
	Height int
}

// Decoder 从源文件解码出像素数据。
type Decoder interface {
	Decode(ctx context.Context, path string) (Decoded, error)
}

// Encoder 把像素数据编码为目标格式写入 w（落盘/原子性由调用方负责）。
type Encoder interface {
	Encode(w io.Writer, img Decoded) error
}

const (
	DecoderNative = "native"
	DecoderSips   = "sips"
)

// DecoderByName 按配置名选择解码器。
func DecoderByName(name string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DecoderNative:
		return HEICDecoder{}, nil
	case DecoderSips:
		return SipsDecoder{}, nil
	default:
		return nil, fmt.Errorf("decoder 只能是 native 或 sips，实际是 %q", name)
	}
}

// NewDecoded 包装 image.Image，并计算 mode/尺寸。
func NewDecoded(img image.Image) (Decoded, error) {
	if img == nil {
		return Decoded{}, fmt.Errorf("解码结果为空")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Decoded{}, fmt.Errorf("图片尺寸无效：%dx%d", b.Dx(), b.Dy())
	}
	return Decoded{
		Image:  img,
		Mode:   ModeOf(img),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// ModeOf 把 color.Model 映射为简短的 mode 名称。
func ModeOf(img image.Image) string {
	switch img.(type) {
	case *image.YCbCr:
		return "YCbCr"
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.CMYK:
		return "CMYK"
	}
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.YCbCrModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	}
	if isOpaque(img) {
		return "RGB"
	}
	return "RGBA"
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
