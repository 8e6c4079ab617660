package imgx

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/gen2brain/heic"
)

// HEICDecoder 使用 gen2brain/heic（纯 Go，无需 cgo/系统库）解码 HEIC。
type HEICDecoder struct{}

func (HEICDecoder) Decode(ctx context.Context, path string) (Decoded, error) {
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Decoded{}, err
	}
	defer f.Close()

	img, err := heic.Decode(bufio.NewReader(f))
	if err != nil {
		return Decoded{}, fmt.Errorf("heic 解码失败：%w", err)
	}
	return NewDecoded(img)
}
