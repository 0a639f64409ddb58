package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/handler"
	"github.com/habitlog/internal/logging"
)

const (
	sessionName   = "habitlog_session"
	sessionMaxAge = 7 * 24 * 60 * 60
)

// Options 控制路由层的会话与日志配置
type Options struct {
	SessionSecret string
	SecureCookie  bool
	Logger        *slog.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(opts.Logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/health", api.HealthCheck)

	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)

	// 公开接口只暴露公开习惯
	public := r.Group("/api")
	public.Use(handler.LocaleMiddleware())
	{
		public.GET("/session", api.GetSession)
		public.GET("/dashboard", api.GetDashboard)
		public.GET("/heatmap", api.GetHeatmap)
		public.GET("/heatmap/:year/badge.png", api.GetHeatmapBadge)
		public.GET("/archived", api.GetArchived)
		public.GET("/habits/:id/history", api.GetHabitHistory)
	}

	// 后台管理路由
	admin := r.Group("/admin/api")
	admin.Use(handler.AuthRequired())
	{
		admin.GET("/tracking", api.GetTracking)
		admin.POST("/tracking", api.SaveTracking)

		admin.GET("/habits", api.ListHabits)
		admin.POST("/habits", api.CreateHabit)
		admin.POST("/habits/reorder", api.ReorderHabits)
		admin.PUT("/habits/:id", api.UpdateHabit)
		admin.DELETE("/habits/:id", api.ArchiveHabit)
		admin.DELETE("/habits/:id/purge", api.PurgeHabit)
		admin.PUT("/habits/:id/logs/:date", api.PutHabitLog)
		admin.DELETE("/habits/:id/logs/:date", api.DeleteHabitLog)

		admin.GET("/cache", api.GetCacheStats)
		admin.POST("/cache/clear", api.ClearCache)
	}

	return r
}
