package db

import (
	"time"
)

// Habit 定义了习惯模型
// IsActive=false 表示已归档（软删除），IsPublic 控制是否出现在公开面板
// ValueAggregationType 仅在 TracksValue=true 时生效，取值 absolute/cumulative
type Habit struct {
	ID                   uint   `gorm:"primaryKey"`
	Name                 string `gorm:"size:100;not null"`
	Description          string
	IsActive             bool `gorm:"not null;index"`
	IsPublic             bool `gorm:"not null;index"`
	OrderIndex           int  `gorm:"not null"`
	TracksValue          bool `gorm:"not null"`
	ValueUnit            *string
	ValueAggregationType string `gorm:"size:20"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HabitLog 记录习惯某一天的打卡
// Habit + LogDate 采用唯一索引，保证同一天只有一条记录；LogDate 统一存为 UTC 零点
type HabitLog struct {
	ID        uint      `gorm:"primaryKey"`
	HabitID   uint      `gorm:"not null;index;uniqueIndex:idx_habit_log_unique"`
	LogDate   time.Time `gorm:"not null;index;uniqueIndex:idx_habit_log_unique"`
	Status    bool      `gorm:"not null"`
	Value     *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + log_date
func (HabitLog) TableName() string {
	return "habit_logs"
}

// SchemaVersion 记录已执行的数据迁移
type SchemaVersion struct {
	Version   int `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	AppliedAt time.Time
}
