package imgx

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
)

// DefaultQuality 在体积与质量之间比较均衡。
const DefaultQuality = 95

// JPEGEncoder 把像素数据编码为 JPEG。
//
// 约束：
// - JPEG 没有 alpha：带透明度的图先铺到白底上再编码
// - Quality<=0 时使用 DefaultQuality；>100 截断为 100
type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) Encode(w io.Writer, img Decoded) error {
	if img.Image == nil {
		return errors.New("没有可编码的像素数据")
	}

	q := e.Quality
	if q <= 0 {
		q = DefaultQuality
	}
	if q > 100 {
		q = 100
	}

	return jpeg.Encode(w, flatten(img.Image), &jpeg.Options{Quality: q})
}

func flatten(src image.Image) image.Image {
	switch src.(type) {
	case *image.YCbCr, *image.Gray, *image.CMYK:
		return src
	}
	if isOpaque(src) {
		return src
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
