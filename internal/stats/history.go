package stats

import "fmt"

// History 是单个习惯逐日的图表数据，缺失记录的日期 Statuses/Values 为 null
type History struct {
	HabitID  uint       `json:"habit_id"`
	Labels   []string   `json:"labels"`
	Data     []int      `json:"data"`
	Statuses []*bool    `json:"statuses"`
	Values   []*float64 `json:"values"`
}

// BuildHistory 生成截至 asOf、共 days 天的逐日序列
func BuildHistory(habit Habit, series Series, asOf Date, days int) (History, error) {
	if days <= 0 {
		return History{}, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidRange, days)
	}

	history := History{
		HabitID:  habit.ID,
		Labels:   make([]string, 0, days),
		Data:     make([]int, 0, days),
		Statuses: make([]*bool, 0, days),
		Values:   make([]*float64, 0, days),
	}

	for day := asOf.AddDays(-(days - 1)); !day.After(asOf); day = day.AddDays(1) {
		history.Labels = append(history.Labels, day.String())

		entry, ok := series.Lookup(day)
		if !ok {
			history.Data = append(history.Data, 0)
			history.Statuses = append(history.Statuses, nil)
			history.Values = append(history.Values, nil)
			continue
		}

		status := entry.Status
		history.Statuses = append(history.Statuses, &status)
		history.Values = append(history.Values, entry.Value)
		if status {
			history.Data = append(history.Data, 1)
		} else {
			history.Data = append(history.Data, 0)
		}
	}

	return history, nil
}
