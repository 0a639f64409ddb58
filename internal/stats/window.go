package stats

import "fmt"

// Window 汇总某习惯在日期区间内的完成情况
type Window struct {
	Start          Date          `json:"start"`
	End            Date          `json:"end"`
	CompletedDays  int           `json:"completed_days"`
	TotalDays      int           `json:"total_days"`
	CompletionRate int           `json:"completion_rate"`
	Values         *ValueSummary `json:"value_summary"`
}

// ValueSummary 是数值型习惯的统计结果
// absolute 模式填充 Latest/Average，cumulative 模式填充 Sum；无数据时为 null
type ValueSummary struct {
	Aggregation Aggregation `json:"aggregation"`
	Latest      *float64    `json:"latest"`
	Average     *float64    `json:"average"`
	Sum         *float64    `json:"sum"`
}

// Totals 是 cumulative 习惯在三个固定窗口内的累计值
type Totals struct {
	Week  *float64 `json:"week"`
	Month *float64 `json:"month"`
	Year  *float64 `json:"year"`
}

// Aggregate 统计 [start, end] 闭区间，起点不会早于习惯创建日
func Aggregate(habit Habit, series Series, start, end Date) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, end, start)
	}

	window := Window{Start: start, End: end}

	from := maxDate(start, habit.CreatedAt)
	if !end.Before(from) {
		window.TotalDays = from.DaysUntil(end) + 1
		for _, day := range series.Between(from, end) {
			if series.entries[day].Status {
				window.CompletedDays++
			}
		}
	}
	window.CompletionRate = percentage(window.CompletedDays, window.TotalDays)

	if habit.TracksValue {
		window.Values = summarizeValues(habit.Aggregation, series, from, end)
	}

	return window, nil
}

// TrailingTotals 计算最近 7 天、当月至今、当年至今三个窗口的累计值
// 仅对记录数值且为 cumulative 模式的习惯返回非空结果
func TrailingTotals(habit Habit, series Series, asOf Date) *Totals {
	if !habit.TracksValue || habit.Aggregation != Cumulative {
		return nil
	}

	return &Totals{
		Week:  sumValues(series, maxDate(asOf.AddDays(-6), habit.CreatedAt), asOf),
		Month: sumValues(series, maxDate(asOf.StartOfMonth(), habit.CreatedAt), asOf),
		Year:  sumValues(series, maxDate(asOf.StartOfYear(), habit.CreatedAt), asOf),
	}
}

func summarizeValues(aggregation Aggregation, series Series, from, end Date) *ValueSummary {
	summary := &ValueSummary{Aggregation: aggregation}

	switch aggregation {
	case Cumulative:
		summary.Sum = sumValues(series, from, end)
	case Absolute:
		var (
			total  float64
			count  int
			latest *float64
		)
		for _, day := range series.Between(from, end) {
			value := series.entries[day].Value
			if value == nil {
				continue
			}
			total += *value
			count++
			latest = value
		}
		if count > 0 {
			v := *latest
			avg := total / float64(count)
			summary.Latest = &v
			summary.Average = &avg
		}
	}

	return summary
}

// sumValues 区间内没有任何记录时返回 nil；有记录但都没有数值时合计为 0
func sumValues(series Series, from, end Date) *float64 {
	if end.Before(from) {
		return nil
	}

	days := series.Between(from, end)
	if len(days) == 0 {
		return nil
	}

	var total float64
	for _, day := range days {
		if value := series.entries[day].Value; value != nil {
			total += *value
		}
	}
	return &total
}
