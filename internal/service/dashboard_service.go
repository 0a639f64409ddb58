package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitlog/internal/cache"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/stats"
	"github.com/habitlog/internal/view"
	"gorm.io/gorm"
)

const (
	// DefaultHistoryDays 是习惯历史图表的默认天数
	DefaultHistoryDays = 90
	// MaxHistoryDays 是习惯历史图表允许的最大天数
	MaxHistoryDays = 366
)

// DashboardService 从数据库加载快照并调用统计引擎生成公开面板数据
// 结果按 (类型, 参数, 当天日期) 缓存，任何写操作都会清空缓存
type DashboardService struct {
	db         *gorm.DB
	cache      *cache.Cache[any]
	location   *time.Location
	now        func() time.Time
	windowDays int
	logger     *slog.Logger
}

// DashboardOption 调整 DashboardService 的可选行为
type DashboardOption func(*DashboardService)

// WithClock 替换当前时间来源，测试中固定"今天"
func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

// WithLocation 指定用于确定"今天"的时区
func WithLocation(loc *time.Location) DashboardOption {
	return func(s *DashboardService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithWindowDays 指定面板卡片的统计窗口
func WithWindowDays(days int) DashboardOption {
	return func(s *DashboardService) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// NewDashboardService 构造 DashboardService
func NewDashboardService(gdb *gorm.DB, payloads *cache.Cache[any], logger *slog.Logger, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		db:         gdb,
		cache:      payloads,
		location:   time.Local,
		now:        time.Now,
		windowDays: stats.DefaultWindowDays,
		logger:     logging.Component(logger, logging.ComponentStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today 返回配置时区下的当天日期
func (s *DashboardService) Today() stats.Date {
	return stats.DateIn(s.now(), s.location)
}

// Dashboard 返回截至今天的公开面板
func (s *DashboardService) Dashboard() (stats.Dashboard, error) {
	asOf := s.Today()
	key := fmt.Sprintf("dashboard/%s/%d", asOf, s.windowDays)

	return cached(s, key, func() (stats.Dashboard, error) {
		habits, logs, err := s.loadPublicSnapshot(nil)
		if err != nil {
			return stats.Dashboard{}, err
		}
		return stats.Assemble(habits, logs, asOf, s.windowDays)
	})
}

// Heatmap 返回指定年份的公开热力图
func (s *DashboardService) Heatmap(year int) (stats.Heatmap, error) {
	key := fmt.Sprintf("heatmap/%d/%s", year, s.Today())

	return cached(s, key, func() (stats.Heatmap, error) {
		if year < 1 || year > 9999 {
			return stats.Heatmap{}, fmt.Errorf("%w: year %d", stats.ErrInvalidRange, year)
		}
		bounds := &stats.DateRange{
			Start: stats.NewDate(year, time.January, 1),
			End:   stats.NewDate(year, time.December, 31),
		}
		habits, logs, err := s.loadPublicSnapshot(bounds)
		if err != nil {
			return stats.Heatmap{}, err
		}
		return stats.BuildHeatmap(year, habits, logs)
	})
}

// Archived 返回已归档公开习惯的全周期汇总
func (s *DashboardService) Archived() ([]stats.ArchivedSummary, error) {
	key := fmt.Sprintf("archived/%s", s.Today())

	return cached(s, key, func() ([]stats.ArchivedSummary, error) {
		habits, logs, err := s.loadPublicSnapshot(nil)
		if err != nil {
			return nil, err
		}
		return stats.Archive(habits, logs)
	})
}

// History 返回单个公开习惯截至今天 days 天的逐日数据，days 为 0 时取默认值
func (s *DashboardService) History(habitID uint, days int) (stats.History, error) {
	if days == 0 {
		days = DefaultHistoryDays
	}
	if days < 0 || days > MaxHistoryDays {
		return stats.History{}, fmt.Errorf("%w: days must be between 1 and %d", stats.ErrInvalidRange, MaxHistoryDays)
	}

	asOf := s.Today()
	key := fmt.Sprintf("history/%d/%d/%s", habitID, days, asOf)

	return cached(s, key, func() (stats.History, error) {
		var record db.Habit
		if err := s.db.Where("id = ? AND is_public = ?", habitID, true).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return stats.History{}, ErrHabitNotFound
			}
			return stats.History{}, fmt.Errorf("get habit: %w", err)
		}

		habit, err := toStatsHabit(record, s.location)
		if err != nil {
			return stats.History{}, err
		}

		start := asOf.AddDays(-(days - 1))
		var rows []db.HabitLog
		if err := s.db.Where("habit_id = ? AND log_date BETWEEN ? AND ?", habitID, start.Time(), asOf.Time()).
			Order("log_date ASC").
			Find(&rows).Error; err != nil {
			return stats.History{}, fmt.Errorf("list habit logs: %w", err)
		}

		return stats.BuildHistory(habit, stats.NewSeries(toStatsLogs(rows)), asOf, days)
	})
}

// CacheStats 暴露缓存指标
func (s *DashboardService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache 手动清空缓存
func (s *DashboardService) ClearCache() {
	s.cache.Invalidate()
}

// loadPublicSnapshot 读取全部公开习惯及其打卡，bounds 为空时读取全部日期
func (s *DashboardService) loadPublicSnapshot(bounds *stats.DateRange) ([]stats.Habit, []stats.Log, error) {
	var records []db.Habit
	if err := s.db.Where("is_public = ?", true).Order("id ASC").Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("list public habits: %w", err)
	}
	if len(records) == 0 {
		return []stats.Habit{}, nil, nil
	}

	habits := make([]stats.Habit, 0, len(records))
	ids := make([]uint, 0, len(records))
	for _, record := range records {
		habit, err := toStatsHabit(record, s.location)
		if err != nil {
			return nil, nil, err
		}
		habits = append(habits, habit)
		ids = append(ids, record.ID)
	}

	query := s.db.Where("habit_id IN ?", ids)
	if bounds != nil {
		query = query.Where("log_date BETWEEN ? AND ?", bounds.Start.Time(), bounds.End.Time())
	}

	var rows []db.HabitLog
	if err := query.Order("habit_id ASC, log_date ASC").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("list public habit logs: %w", err)
	}

	s.logger.Debug("snapshot loaded", "habits", len(habits), "logs", len(rows))
	return habits, toStatsLogs(rows), nil
}

func cached[T any](s *DashboardService, key string, compute func() (T, error)) (T, error) {
	value, err := s.cache.GetOrCompute(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

func toStatsHabit(record db.Habit, loc *time.Location) (stats.Habit, error) {
	aggregation, err := stats.ParseAggregation(record.ValueAggregationType)
	if err != nil {
		return stats.Habit{}, fmt.Errorf("habit %d: %w", record.ID, err)
	}

	description, err := view.RenderMarkdown(record.Description)
	if err != nil {
		return stats.Habit{}, fmt.Errorf("render habit %d description: %w", record.ID, err)
	}

	return stats.Habit{
		ID:              record.ID,
		Name:            record.Name,
		DescriptionHTML: description,
		IsActive:        record.IsActive,
		IsPublic:        record.IsPublic,
		OrderIndex:      record.OrderIndex,
		TracksValue:     record.TracksValue,
		ValueUnit:       record.ValueUnit,
		Aggregation:     aggregation,
		CreatedAt:       stats.DateIn(record.CreatedAt, loc),
	}, nil
}

func toStatsLogs(rows []db.HabitLog) []stats.Log {
	logs := make([]stats.Log, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, stats.Log{
			HabitID: row.HabitID,
			Date:    stats.DateIn(row.LogDate, time.UTC),
			Status:  row.Status,
			Value:   row.Value,
		})
	}
	return logs
}
