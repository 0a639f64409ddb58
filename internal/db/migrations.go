package db

import (
	"gorm.io/gorm"
)

type migration struct {
	version int
	name    string
	apply   func(tx *gorm.DB) error
}

// migrations 只允许追加，已发布的版本号不可修改
var migrations = []migration{
	{
		version: 1,
		name:    "backfill_value_aggregation_type",
		apply: func(tx *gorm.DB) error {
			return tx.Model(&Habit{}).
				Where("value_aggregation_type = '' OR value_aggregation_type IS NULL").
				Update("value_aggregation_type", "absolute").Error
		},
	},
	{
		version: 2,
		name:    "renumber_order_index",
		apply:   renumberOrderIndex,
	},
}

// renumberOrderIndex 把 order_index 重排为从 0 开始的连续序号
func renumberOrderIndex(tx *gorm.DB) error {
	var habits []Habit
	if err := tx.Order("order_index ASC, created_at ASC, id ASC").Find(&habits).Error; err != nil {
		return err
	}

	for i, habit := range habits {
		if habit.OrderIndex == i {
			continue
		}
		if err := tx.Model(&Habit{}).Where("id = ?", habit.ID).UpdateColumn("order_index", i).Error; err != nil {
			return err
		}
	}
	return nil
}
