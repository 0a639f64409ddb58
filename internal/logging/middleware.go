package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的传递头
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// Middleware 为每个请求分配请求 ID，并在请求结束后输出访问日志
// 5xx 记为 Error，4xx 记为 Warn，其余记为 Info
func Middleware(logger *slog.Logger) gin.HandlerFunc {
	base := Component(logger, ComponentHTTP)

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := base.With(FieldRequestID, requestID)
		c.Set(requestIDKey, requestID)
		c.Set(loggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			FieldMethod, c.Request.Method,
			FieldPath, c.Request.URL.Path,
			FieldStatusCode, status,
			FieldDuration, time.Since(start).Milliseconds(),
			FieldClientIP, c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, FieldError, c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request completed", attrs...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request completed", attrs...)
		default:
			reqLogger.Info("request completed", attrs...)
		}
	}
}

// FromContext 返回中间件注入的请求级 logger，缺失时回退到 slog.Default
func FromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(loggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// RequestID 返回当前请求 ID
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
