// Package logging 提供基于 slog 的结构化日志和 gin 访问日志中间件
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// 结构化日志的通用字段名
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldHabitID    = "habit_id"
	FieldDate       = "date"
	FieldCacheKey   = "cache_key"
)

// 组件名
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentStats   = "stats"
	ComponentAuth    = "auth"
)

// ParseLevel 把 LOG_LEVEL 解析为 slog.Level，未知取值回退为 Info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New 创建文本格式的 logger，w 为 nil 时写到 stdout
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler)
}

// Component 返回带组件字段的子 logger
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(FieldComponent, name)
}

// Discard 返回丢弃所有输出的 logger，测试中使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
