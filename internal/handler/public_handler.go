package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/locale"
	"github.com/habitlog/internal/service"
	"github.com/habitlog/internal/stats"
	"github.com/habitlog/internal/view"
)

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"app":    "habitlog",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"app":    "habitlog",
	})
}

// GetDashboard 返回公开面板
func (a *API) GetDashboard(c *gin.Context) {
	dashboard, err := a.dashboard.Dashboard()
	if err != nil {
		handleStatsError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetHeatmap 返回年度热力图，year 缺省为今年，lang 决定月份名称语言
func (a *API) GetHeatmap(c *gin.Context) {
	year, err := parseOptionalInt(c.Query("year"), a.dashboard.Today().Year())
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的年份")
		return
	}

	heatmap, err := a.dashboard.Heatmap(year)
	if err != nil {
		handleStatsError(c, err)
		return
	}

	c.JSON(http.StatusOK, localizeHeatmap(heatmap, requestLanguage(c)))
}

// GetHeatmapBadge 以 PNG 图片返回年度热力图
func (a *API) GetHeatmapBadge(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的年份")
		return
	}

	heatmap, err := a.dashboard.Heatmap(year)
	if err != nil {
		handleStatsError(c, err)
		return
	}

	payload, err := view.RenderHeatmapBadge(heatmap)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "生成图片失败")
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "image/png", payload)
}

// GetArchived 返回已归档公开习惯的汇总
func (a *API) GetArchived(c *gin.Context) {
	archived, err := a.dashboard.Archived()
	if err != nil {
		handleStatsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

// GetHabitHistory 返回单个公开习惯的逐日图表数据
func (a *API) GetHabitHistory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	days, err := parseOptionalInt(c.Query("days"), 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的天数")
		return
	}

	history, err := a.dashboard.History(id, days)
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			handleHabitError(c, err)
			return
		}
		handleStatsError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// localizeHeatmap 返回替换了月份名称的副本，缓存中的原值保持不变
func localizeHeatmap(heatmap stats.Heatmap, language string) stats.Heatmap {
	months := make([]stats.MonthGrid, len(heatmap.Months))
	for i, month := range heatmap.Months {
		month.MonthName = locale.MonthName(language, time.Month(month.Month))
		months[i] = month
	}
	heatmap.Months = months
	return heatmap
}

func handleStatsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stats.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, "日期范围无效")
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "统计计算失败")
	}
}
