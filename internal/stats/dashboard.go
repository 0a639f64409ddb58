package stats

import (
	"cmp"
	"fmt"
	"slices"
)

// DefaultWindowDays 是公开面板每个习惯卡片的统计窗口
const DefaultWindowDays = 30

// DateRange 描述闭区间
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// LogEntry 是卡片中展示的单条记录
type LogEntry struct {
	Date   Date     `json:"date"`
	Status bool     `json:"status"`
	Value  *float64 `json:"value"`
}

// Card 是公开面板上单个活跃习惯的数据
type Card struct {
	ID              uint          `json:"id"`
	Name            string        `json:"name"`
	DescriptionHTML string        `json:"description_html"`
	OrderIndex      int           `json:"order_index"`
	CreatedAt       Date          `json:"created_at"`
	TracksValue     bool          `json:"tracks_value"`
	ValueUnit       *string       `json:"value_unit"`
	Aggregation     Aggregation   `json:"value_aggregation_type"`
	CurrentStreak   int           `json:"current_streak"`
	CompletionRate  int           `json:"completion_rate"`
	CompletedDays   int           `json:"completed_days"`
	TotalDays       int           `json:"total_days"`
	Logs            []LogEntry    `json:"logs"`
	ValueStats      *ValueSummary `json:"value_stats"`
	ValueTotals     *Totals       `json:"value_aggregations"`
}

// ArchivedSummary 是已归档公开习惯的全周期统计
type ArchivedSummary struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	CreatedAt        Date   `json:"created_at"`
	TotalCompletions int    `json:"total_completions"`
	TotalDaysTracked int    `json:"total_days_tracked"`
	CompletionRate   int    `json:"completion_rate"`
	LongestStreak    int    `json:"longest_streak"`
	FirstLog         *Date  `json:"first_log"`
	LastLog          *Date  `json:"last_log"`
}

// Dashboard 是公开面板的完整负载
type Dashboard struct {
	AsOf      Date              `json:"as_of"`
	DateRange DateRange         `json:"date_range"`
	Habits    []Card            `json:"habits"`
	Archived  []ArchivedSummary `json:"archived"`
}

// Assemble 组装公开面板：活跃公开习惯生成卡片，归档公开习惯生成全周期汇总
// days<=0 时使用 DefaultWindowDays
func Assemble(habits []Habit, logs []Log, asOf Date, days int) (Dashboard, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if err := ValidateLogs(habits, logs); err != nil {
		return Dashboard{}, err
	}

	grouped := GroupLogs(logs)
	start := asOf.AddDays(-(days - 1))

	dashboard := Dashboard{
		AsOf:      asOf,
		DateRange: DateRange{Start: start, End: asOf},
		Habits:    make([]Card, 0, len(habits)),
		Archived:  make([]ArchivedSummary, 0),
	}

	for _, habit := range sortedForDisplay(habits) {
		if !habit.IsPublic {
			continue
		}
		series := NewSeries(grouped[habit.ID])

		if !habit.IsActive {
			dashboard.Archived = append(dashboard.Archived, summarizeArchived(habit, series))
			continue
		}

		card, err := buildCard(habit, series, start, asOf)
		if err != nil {
			return Dashboard{}, err
		}
		dashboard.Habits = append(dashboard.Habits, card)
	}

	sortArchived(dashboard.Archived)
	return dashboard, nil
}

// Archive 只生成归档习惯汇总，供单独的归档接口使用
func Archive(habits []Habit, logs []Log) ([]ArchivedSummary, error) {
	if err := ValidateLogs(habits, logs); err != nil {
		return nil, err
	}

	grouped := GroupLogs(logs)
	summaries := make([]ArchivedSummary, 0)
	for _, habit := range habits {
		if !habit.IsPublic || habit.IsActive {
			continue
		}
		summaries = append(summaries, summarizeArchived(habit, NewSeries(grouped[habit.ID])))
	}

	sortArchived(summaries)
	return summaries, nil
}

func buildCard(habit Habit, series Series, start, asOf Date) (Card, error) {
	window, err := Aggregate(habit, series, start, asOf)
	if err != nil {
		return Card{}, fmt.Errorf("aggregate habit %d: %w", habit.ID, err)
	}

	card := Card{
		ID:              habit.ID,
		Name:            habit.Name,
		DescriptionHTML: habit.DescriptionHTML,
		OrderIndex:      habit.OrderIndex,
		CreatedAt:       habit.CreatedAt,
		TracksValue:     habit.TracksValue,
		ValueUnit:       habit.ValueUnit,
		Aggregation:     habit.Aggregation,
		CurrentStreak:   CurrentStreak(habit, series, asOf),
		CompletionRate:  window.CompletionRate,
		CompletedDays:   window.CompletedDays,
		TotalDays:       window.TotalDays,
		Logs:            make([]LogEntry, 0),
		ValueStats:      window.Values,
		ValueTotals:     TrailingTotals(habit, series, asOf),
	}

	for _, day := range series.Between(maxDate(start, habit.CreatedAt), asOf) {
		entry := series.entries[day]
		card.Logs = append(card.Logs, LogEntry{Date: day, Status: entry.Status, Value: entry.Value})
	}

	return card, nil
}

// summarizeArchived 与其他统计一致，忽略早于习惯创建日的记录
func summarizeArchived(habit Habit, series Series) ArchivedSummary {
	summary := ArchivedSummary{
		ID:            habit.ID,
		Name:          habit.Name,
		CreatedAt:     habit.CreatedAt,
		LongestStreak: LongestStreak(habit, series),
	}

	for _, day := range series.dates {
		if day.Before(habit.CreatedAt) {
			continue
		}
		if summary.FirstLog == nil {
			first := day
			summary.FirstLog = &first
		}
		last := day
		summary.LastLog = &last

		summary.TotalDaysTracked++
		if series.entries[day].Status {
			summary.TotalCompletions++
		}
	}
	summary.CompletionRate = percentage(summary.TotalCompletions, summary.TotalDaysTracked)

	return summary
}

// sortedForDisplay 按 order_index、创建日、ID 排序，保证输出稳定
func sortedForDisplay(habits []Habit) []Habit {
	sorted := slices.Clone(habits)
	slices.SortStableFunc(sorted, func(a, b Habit) int {
		if diff := cmp.Compare(a.OrderIndex, b.OrderIndex); diff != 0 {
			return diff
		}
		if diff := a.CreatedAt.Compare(b.CreatedAt); diff != 0 {
			return diff
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}

// sortArchived 最近创建的排在前面
func sortArchived(summaries []ArchivedSummary) {
	slices.SortStableFunc(summaries, func(a, b ArchivedSummary) int {
		if diff := b.CreatedAt.Compare(a.CreatedAt); diff != 0 {
			return diff
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
