package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCacheStats 返回统计缓存的运行指标
func (a *API) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cache": a.dashboard.CacheStats()})
}

// ClearCache 手动清空统计缓存
func (a *API) ClearCache(c *gin.Context) {
	a.dashboard.ClearCache()
	a.logger.Info("cache cleared by admin")
	c.JSON(http.StatusOK, gin.H{"cleared": true, "cache": a.dashboard.CacheStats()})
}
