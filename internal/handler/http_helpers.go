package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/stats"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseDateParam 解析路径中的 YYYY-MM-DD 日期
func parseDateParam(c *gin.Context, key string) (stats.Date, error) {
	return stats.ParseDate(c.Param(key))
}

// parseOptionalInt 解析可选的整数查询参数，缺失时返回 fallback
func parseOptionalInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func isJSONRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Content-Type"), "application/json")
}
