package stats

import (
	"fmt"
	"time"
)

const (
	minYear = 1
	maxYear = 9999
)

// DayCell 是热力图中的一天
// 当天没有任何已创建的习惯时 CompletionPercentage 为 null
type DayCell struct {
	DayOfMonth           int  `json:"day_of_month"`
	Date                 Date `json:"date"`
	CompletionPercentage *int `json:"completion_percentage"`
	CompletedCount       int  `json:"completed_count"`
	TotalCount           int  `json:"total_count"`
}

// MonthGrid 是周一为首列的月历布局
type MonthGrid struct {
	Month           int       `json:"month"`
	MonthName       string    `json:"month_name"`
	FirstDayWeekday int       `json:"first_day_weekday"`
	Days            []DayCell `json:"days"`
}

// DayStat 记录最佳/最差的一天
type DayStat struct {
	Date       Date `json:"date"`
	Percentage int  `json:"percentage"`
}

// OverallStats 汇总全年有效天的统计
type OverallStats struct {
	TotalDaysTracked  int      `json:"total_days_tracked"`
	AverageCompletion float64  `json:"average_completion"`
	BestDay           *DayStat `json:"best_day"`
	WorstDay          *DayStat `json:"worst_day"`
}

// Heatmap 是某一年的完整热力图
type Heatmap struct {
	Year         int          `json:"year"`
	IsLeapYear   bool         `json:"is_leap_year"`
	Months       []MonthGrid  `json:"months"`
	OverallStats OverallStats `json:"overall_stats"`
}

// BuildHeatmap 计算 year 年每天所有公开习惯的综合完成率
// habits 只应包含公开习惯（含已归档）；某天的分母只统计创建日不晚于该天的习惯
func BuildHeatmap(year int, habits []Habit, logs []Log) (Heatmap, error) {
	if year < minYear || year > maxYear {
		return Heatmap{}, fmt.Errorf("%w: year %d", ErrInvalidRange, year)
	}
	if err := ValidateLogs(habits, logs); err != nil {
		return Heatmap{}, err
	}

	series := make(map[uint]Series, len(habits))
	for habitID, habitLogs := range GroupLogs(logs) {
		series[habitID] = NewSeries(habitLogs)
	}

	heatmap := Heatmap{
		Year:       year,
		IsLeapYear: isLeapYear(year),
		Months:     make([]MonthGrid, 0, 12),
	}

	var (
		tracked int
		sum     int
		best    *DayStat
		worst   *DayStat
	)

	for month := time.January; month <= time.December; month++ {
		first := NewDate(year, month, 1)
		grid := MonthGrid{
			Month:           int(month),
			MonthName:       month.String(),
			FirstDayWeekday: first.MondayIndex(),
			Days:            make([]DayCell, 0, daysInMonth(year, month)),
		}

		for day := first; day.Month() == month; day = day.AddDays(1) {
			cell := buildDayCell(day, habits, series)
			grid.Days = append(grid.Days, cell)

			if cell.CompletionPercentage == nil {
				continue
			}
			pct := *cell.CompletionPercentage
			tracked++
			sum += pct
			// 按日期顺序遍历，只在严格更优时替换，平局保留最早的一天
			if best == nil || pct > best.Percentage {
				best = &DayStat{Date: day, Percentage: pct}
			}
			if worst == nil || pct < worst.Percentage {
				worst = &DayStat{Date: day, Percentage: pct}
			}
		}

		heatmap.Months = append(heatmap.Months, grid)
	}

	heatmap.OverallStats = OverallStats{
		TotalDaysTracked: tracked,
		BestDay:          best,
		WorstDay:         worst,
	}
	if tracked > 0 {
		heatmap.OverallStats.AverageCompletion = float64(sum) / float64(tracked)
	}

	return heatmap, nil
}

func buildDayCell(day Date, habits []Habit, series map[uint]Series) DayCell {
	cell := DayCell{DayOfMonth: day.Day(), Date: day}

	for _, habit := range habits {
		if !habit.IsPublic || habit.CreatedAt.After(day) {
			continue
		}
		cell.TotalCount++
		if entry, ok := series[habit.ID].Lookup(day); ok && entry.Status {
			cell.CompletedCount++
		}
	}

	if cell.TotalCount > 0 {
		pct := percentage(cell.CompletedCount, cell.TotalCount)
		cell.CompletionPercentage = &pct
	}
	return cell
}
