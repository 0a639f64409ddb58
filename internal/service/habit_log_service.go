package service

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/stats"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLogInvalid 当打卡内容不合法时返回
var ErrLogInvalid = errors.New("invalid habit log")

// HabitLogService 负责打卡记录的写入与查询
type HabitLogService struct {
	db          *gorm.DB
	invalidator Invalidator
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// HabitLogOption 定制 HabitLogService
type HabitLogOption func(*HabitLogService)

// WithLogCalendar 指定判断"今天"与习惯创建日所用的时区和时钟
func WithLogCalendar(loc *time.Location, now func() time.Time) HabitLogOption {
	return func(s *HabitLogService) {
		if loc != nil {
			s.location = loc
		}
		if now != nil {
			s.now = now
		}
	}
}

// HabitLogInput 定义打卡时的输入对象
type HabitLogInput struct {
	HabitID uint
	Date    stats.Date
	Status  bool
	Value   *float64
}

// DayEntry 是批量保存某一天时单个习惯的状态
type DayEntry struct {
	HabitID uint     `json:"habit_id"`
	Status  bool     `json:"status"`
	Value   *float64 `json:"value"`
}

// HabitLogFilter 指定查询区间，HabitID 为 0 时不限习惯
type HabitLogFilter struct {
	HabitID uint
	Start   stats.Date
	End     stats.Date
}

// TrackingItem 是后台打卡页中某个习惯当天的状态
type TrackingItem struct {
	HabitID     uint     `json:"habit_id"`
	Name        string   `json:"name"`
	IsPublic    bool     `json:"is_public"`
	TracksValue bool     `json:"tracks_value"`
	ValueUnit   *string  `json:"value_unit"`
	IsLogged    bool     `json:"is_logged"`
	Status      *bool    `json:"status"`
	Value       *float64 `json:"value"`
}

// NewHabitLogService 构造 HabitLogService
func NewHabitLogService(gdb *gorm.DB, invalidator Invalidator, logger *slog.Logger, opts ...HabitLogOption) *HabitLogService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	s := &HabitLogService{
		db:          gdb,
		invalidator: invalidator,
		location:    time.Local,
		now:         time.Now,
		logger:      logging.Component(logger, logging.ComponentStorage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today 返回配置时区下的当天日期
func (s *HabitLogService) today() stats.Date {
	return stats.DateIn(s.now(), s.location)
}

// Upsert 按 (habit_id, date) 幂等写入：已存在则覆盖状态与数值
func (s *HabitLogService) Upsert(input HabitLogInput) (*db.HabitLog, error) {
	var record db.HabitLog
	err := s.db.Transaction(func(tx *gorm.DB) error {
		saved, err := s.upsertLog(tx, input)
		if err != nil {
			return err
		}
		record = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate()
	s.logger.Debug("habit log saved", logging.FieldHabitID, input.HabitID, logging.FieldDate, input.Date.String())
	return &record, nil
}

// Delete 删除指定日期的打卡，返回是否确有记录被删除
func (s *HabitLogService) Delete(habitID uint, date stats.Date) (bool, error) {
	result := s.db.Where("habit_id = ? AND log_date = ?", habitID, date.Time()).Delete(&db.HabitLog{})
	if result.Error != nil {
		return false, fmt.Errorf("delete habit log: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.invalidator.Invalidate()
	}
	return result.RowsAffected > 0, nil
}

// ListBetween 返回指定区间内的打卡记录，按日期升序
func (s *HabitLogService) ListBetween(filter HabitLogFilter) ([]db.HabitLog, error) {
	if filter.End.Before(filter.Start) {
		return nil, fmt.Errorf("%w: end before start", stats.ErrInvalidRange)
	}

	var logs []db.HabitLog
	query := s.db.Where("log_date BETWEEN ? AND ?", filter.Start.Time(), filter.End.Time())
	if filter.HabitID != 0 {
		query = query.Where("habit_id = ?", filter.HabitID)
	}
	if err := query.Order("log_date ASC, habit_id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	return logs, nil
}

// ListForDate 返回某一天所有习惯的打卡
func (s *HabitLogService) ListForDate(date stats.Date) ([]db.HabitLog, error) {
	return s.ListBetween(HabitLogFilter{Start: date, End: date})
}

// SaveDay 在一个事务中保存某一天的全部打卡，任一条不合法时整体回滚
func (s *HabitLogService) SaveDay(date stats.Date, entries []DayEntry) (int, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if _, err := s.upsertLog(tx, HabitLogInput{
				HabitID: entry.HabitID,
				Date:    date,
				Status:  entry.Status,
				Value:   entry.Value,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidator.Invalidate()
	s.logger.Info("day saved", logging.FieldDate, date.String(), "entries", len(entries))
	return len(entries), nil
}

// TrackingDay 返回某一天所有活跃习惯（含私有）的打卡状态
func (s *HabitLogService) TrackingDay(date stats.Date) ([]TrackingItem, error) {
	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).
		Order("order_index ASC, created_at ASC, id ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}

	logs, err := s.ListForDate(date)
	if err != nil {
		return nil, err
	}
	byHabit := make(map[uint]db.HabitLog, len(logs))
	for _, log := range logs {
		byHabit[log.HabitID] = log
	}

	items := make([]TrackingItem, 0, len(habits))
	for _, habit := range habits {
		item := TrackingItem{
			HabitID:     habit.ID,
			Name:        habit.Name,
			IsPublic:    habit.IsPublic,
			TracksValue: habit.TracksValue,
			ValueUnit:   habit.ValueUnit,
		}
		if log, ok := byHabit[habit.ID]; ok {
			status := log.Status
			item.IsLogged = true
			item.Status = &status
			item.Value = log.Value
		}
		items = append(items, item)
	}
	return items, nil
}

// upsertLog 只接受习惯创建日到今天之间的日期，其余日期的记录不会被统计
func (s *HabitLogService) upsertLog(tx *gorm.DB, input HabitLogInput) (db.HabitLog, error) {
	if input.Date.IsZero() {
		return db.HabitLog{}, fmt.Errorf("%w: date is required", ErrLogInvalid)
	}
	if today := s.today(); input.Date.After(today) {
		return db.HabitLog{}, fmt.Errorf("%w: date %s is after today %s", ErrLogInvalid, input.Date, today)
	}

	var habit db.Habit
	if err := tx.First(&habit, input.HabitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.HabitLog{}, fmt.Errorf("%w: id %d", ErrHabitNotFound, input.HabitID)
		}
		return db.HabitLog{}, fmt.Errorf("find habit: %w", err)
	}
	if created := stats.DateIn(habit.CreatedAt, s.location); input.Date.Before(created) {
		return db.HabitLog{}, fmt.Errorf("%w: date %s is before habit %d was created on %s", ErrLogInvalid, input.Date, habit.ID, created)
	}

	if input.Value != nil {
		value := *input.Value
		if !habit.TracksValue {
			return db.HabitLog{}, fmt.Errorf("%w: habit %d does not track values", ErrLogInvalid, habit.ID)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return db.HabitLog{}, fmt.Errorf("%w: value must be a non-negative number", ErrLogInvalid)
		}
	}

	record := db.HabitLog{
		HabitID: input.HabitID,
		LogDate: input.Date.Time(),
		Status:  input.Status,
		Value:   input.Value,
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "log_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "value", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return db.HabitLog{}, fmt.Errorf("upsert habit log: %w", err)
	}

	if err := tx.Where("habit_id = ? AND log_date = ?", input.HabitID, input.Date.Time()).First(&record).Error; err != nil {
		return db.HabitLog{}, fmt.Errorf("reload habit log: %w", err)
	}

	return record, nil
}
