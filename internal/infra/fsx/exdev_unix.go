//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别 rename/link 返回的跨设备错误（*os.LinkError 也实现了 Unwrap）。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// isLinkUnsupported 识别“文件系统不支持硬链接”（FAT/exFAT、部分网络盘）。
func isLinkUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EOPNOTSUPP)
}
