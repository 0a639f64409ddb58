package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/habitlog/internal/cache"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options 汇总构造 API 所需的运行参数
type Options struct {
	AppPassword   string
	Location      *time.Location
	DashboardDays int
	CacheSize     int
	CacheTTL      time.Duration
	// Clock 为空时使用 time.Now
	Clock func() time.Time
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	habits       *service.HabitService
	habitLogs    *service.HabitLogService
	dashboard    *service.DashboardService
	passwordHash []byte
	logger       *slog.Logger
}

// NewAPI constructs a handler set with shared services.
// 管理密码在启动时做一次 bcrypt 哈希，之后只比较哈希。
func NewAPI(gdb *gorm.DB, opts Options, logger *slog.Logger) (*API, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AppPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash app password: %w", err)
	}

	payloads := cache.New[any](opts.CacheSize, opts.CacheTTL, logger)

	dashboardOpts := []service.DashboardOption{
		service.WithLocation(opts.Location),
		service.WithWindowDays(opts.DashboardDays),
	}
	if opts.Clock != nil {
		dashboardOpts = append(dashboardOpts, service.WithClock(opts.Clock))
	}

	return &API{
		db:           gdb,
		habits:       service.NewHabitService(gdb, payloads, logger, service.WithHabitClock(opts.Clock)),
		habitLogs:    service.NewHabitLogService(gdb, payloads, logger, service.WithLogCalendar(opts.Location, opts.Clock)),
		dashboard:    service.NewDashboardService(gdb, payloads, logger, dashboardOpts...),
		passwordHash: hash,
		logger:       logging.Component(logger, logging.ComponentHTTP),
	}, nil
}
