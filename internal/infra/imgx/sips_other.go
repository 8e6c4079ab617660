//go:build !darwin

package imgx

import (
	"context"
	"errors"
)

// ErrSipsUnsupported 表示当前平台没有 sips。
var ErrSipsUnsupported = errors.New("sips 解码器仅在 macOS 上可用")

// SipsDecoder 在非 macOS 平台上总是失败（逐条 codec_failed，而不是整批中止）。
type SipsDecoder struct{}

func (SipsDecoder) Decode(ctx context.Context, path string) (Decoded, error) {
	return Decoded{}, ErrSipsUnsupported
}
