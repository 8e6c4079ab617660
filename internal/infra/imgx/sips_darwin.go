//go:build darwin

package imgx

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"strings"
)

// SipsDecoder 借助 macOS 自带的 sips 把 HEIC 转成临时 JPEG，再用标准库解码。
// 适合 native 解码器不支持的 HEIC 变体；代价是多一次有损编码。
type SipsDecoder struct{}

func (SipsDecoder) Decode(ctx context.Context, path string) (Decoded, error) {
	tmp, err := os.CreateTemp("", "heic2jpg-sips-*.jpg")
	if err != nil {
		return Decoded{}, fmt.Errorf("创建临时文件失败：%w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "sips", "-s", "format", "jpeg", "-s", "formatOptions", "best", path, "--out", tmpPath)
	if out, runErr := cmd.CombinedOutput(); runErr != nil {
		return Decoded{}, fmt.Errorf("sips 转换失败：%w (%s)", runErr, strings.TrimSpace(string(out)))
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return Decoded{}, err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return Decoded{}, fmt.Errorf("解码 sips 输出失败：%w", err)
	}
	return NewDecoded(img)
}
