// Package logging 统一 slog 的初始化：日志一律写 stderr，不污染 stdout 的 JSON 契约。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init 设置全局 slog default。w 为 nil 时写 os.Stderr；format 为 "text" 或 "json"。
func Init(level slog.Level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// New 返回带 component 属性的 logger。
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ParseLevel 解析 debug|info|warn|error（大小写不敏感）。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level 只能是 debug|info|warn|error，实际是 %q", s)
	}
}

// Discard 返回丢弃所有输出的 logger（测试与库调用方未注入 logger 时使用）。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
