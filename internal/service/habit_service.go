package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/stats"
	"github.com/habitlog/internal/view"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalid 当习惯字段不合法时返回
	ErrHabitInvalid = errors.New("invalid habit")
)

const maxHabitNameLength = 100

// Invalidator 在写操作后清理已缓存的统计结果
type Invalidator interface {
	Invalidate()
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}

// HabitService 负责 Habit 数据的增删改查
// 主要用于后台管理逻辑，保持与 handler 解耦
type HabitService struct {
	db          *gorm.DB
	invalidator Invalidator
	now         func() time.Time
	logger      *slog.Logger
}

// HabitOption 定制 HabitService
type HabitOption func(*HabitService)

// WithHabitClock 指定创建习惯时使用的时钟
func WithHabitClock(now func() time.Time) HabitOption {
	return func(s *HabitService) {
		if now != nil {
			s.now = now
		}
	}
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	PublicOnly bool
	ActiveOnly bool
	Search     string
}

// HabitInput 定义创建习惯时可配置字段，IsPublic 为空时默认公开
type HabitInput struct {
	Name            string
	Description     string
	IsPublic        *bool
	TracksValue     bool
	ValueUnit       string
	AggregationType string
}

// HabitUpdate 只更新非空字段
type HabitUpdate struct {
	Name            *string
	Description     *string
	IsActive        *bool
	IsPublic        *bool
	TracksValue     *bool
	ValueUnit       *string
	AggregationType *string
}

// NewHabitService 构造 HabitService，invalidator 为空时不做缓存清理
func NewHabitService(gdb *gorm.DB, invalidator Invalidator, logger *slog.Logger, opts ...HabitOption) *HabitService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	s := &HabitService{
		db:          gdb,
		invalidator: invalidator,
		now:         time.Now,
		logger:      logging.Component(logger, logging.ComponentStorage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 返回按展示顺序排列的习惯集合
func (s *HabitService) List(filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{})
	if filter.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("order_index ASC, created_at ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯，追加到当前最大 order_index 之后
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	name, err := normalizeHabitName(input.Name)
	if err != nil {
		return nil, err
	}
	aggregation, err := normalizeAggregation(input.AggregationType)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	habit := db.Habit{
		Name:                 name,
		Description:          strings.TrimSpace(input.Description),
		IsActive:             true,
		IsPublic:             isPublic,
		TracksValue:          input.TracksValue,
		ValueUnit:            normalizeUnit(input.ValueUnit),
		ValueAggregationType: aggregation,
		CreatedAt:            s.now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var maxOrder sql.NullInt64
		if err := tx.Model(&db.Habit{}).Select("MAX(order_index)").Row().Scan(&maxOrder); err != nil {
			return err
		}
		if maxOrder.Valid {
			habit.OrderIndex = int(maxOrder.Int64) + 1
		}
		return tx.Create(&habit).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}

	s.invalidator.Invalidate()
	s.logger.Info("habit created", logging.FieldHabitID, habit.ID, "order_index", habit.OrderIndex)
	return &habit, nil
}

// Update 按白名单字段更新习惯
func (s *HabitService) Update(id uint, input HabitUpdate) (*db.Habit, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := normalizeHabitName(*input.Name)
		if err != nil {
			return nil, err
		}
		existing.Name = name
	}
	if input.Description != nil {
		existing.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	if input.IsPublic != nil {
		existing.IsPublic = *input.IsPublic
	}
	if input.TracksValue != nil {
		existing.TracksValue = *input.TracksValue
	}
	if input.ValueUnit != nil {
		existing.ValueUnit = normalizeUnit(*input.ValueUnit)
	}
	if input.AggregationType != nil {
		aggregation, err := normalizeAggregation(*input.AggregationType)
		if err != nil {
			return nil, err
		}
		existing.ValueAggregationType = aggregation
	}

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}

	s.invalidator.Invalidate()
	s.logger.Info("habit updated", logging.FieldHabitID, existing.ID)
	return existing, nil
}

// Reorder 按传入顺序重写 order_index，任一 ID 不存在时整体回滚
func (s *HabitService) Reorder(ids []uint) error {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %d in order", ErrHabitInvalid, id)
		}
		seen[id] = struct{}{}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for index, id := range ids {
			result := tx.Model(&db.Habit{}).Where("id = ?", id).UpdateColumn("order_index", index)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: id %d", ErrHabitNotFound, id)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return err
		}
		return fmt.Errorf("reorder habits: %w", err)
	}

	s.invalidator.Invalidate()
	return nil
}

// Archive 软删除：保留记录，仅标记为不活跃
func (s *HabitService) Archive(id uint) (*db.Habit, error) {
	inactive := false
	return s.Update(id, HabitUpdate{IsActive: &inactive})
}

// Purge 永久删除习惯及其全部打卡记录
func (s *HabitService) Purge(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&db.HabitLog{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Habit{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrHabitNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return err
		}
		return fmt.Errorf("purge habit: %w", err)
	}

	s.invalidator.Invalidate()
	s.logger.Info("habit purged", logging.FieldHabitID, id)
	return nil
}

func normalizeHabitName(raw string) (string, error) {
	name := view.PlainText(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrHabitInvalid)
	}
	if utf8.RuneCountInString(name) > maxHabitNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrHabitInvalid, maxHabitNameLength)
	}
	return name, nil
}

func normalizeAggregation(raw string) (string, error) {
	aggregation, err := stats.ParseAggregation(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHabitInvalid, err)
	}
	return aggregation.String(), nil
}

func normalizeUnit(raw string) *string {
	unit := view.PlainText(raw)
	if unit == "" {
		return nil
	}
	return &unit
}
