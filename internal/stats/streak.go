package stats

// CurrentStreak 计算截至 asOf 的连续完成天数
//
// 锚点规则：asOf 当天 status=true 时从 asOf 开始；asOf 当天没有完成（无记录或记录为未完成）
// 时从前一天开始，今天的未完成不会清零截至昨天的连胜。
// 从锚点向前逐日回溯，遇到缺失记录、status=false 或早于习惯创建日即停止。
func CurrentStreak(habit Habit, series Series, asOf Date) int {
	anchor, ok := streakAnchor(habit, series, asOf)
	if !ok {
		return 0
	}

	streak := 0
	for day := anchor; !day.Before(habit.CreatedAt); day = day.AddDays(-1) {
		entry, logged := series.Lookup(day)
		if !logged || !entry.Status {
			break
		}
		streak++
	}
	return streak
}

func streakAnchor(habit Habit, series Series, asOf Date) (Date, bool) {
	if entry, logged := series.Lookup(asOf); logged && entry.Status {
		return asOf, true
	}

	yesterday := asOf.AddDays(-1)
	if yesterday.Before(habit.CreatedAt) {
		return Date{}, false
	}
	entry, logged := series.Lookup(yesterday)
	return yesterday, logged && entry.Status
}

// LongestStreak 单次扫描全部记录，返回历史上最长的连续完成天数
// 早于习惯创建日的记录不参与计算
func LongestStreak(habit Habit, series Series) int {
	longest, current := 0, 0
	var prev Date

	for _, day := range series.dates {
		if day.Before(habit.CreatedAt) {
			continue
		}
		entry := series.entries[day]
		if !entry.Status {
			current = 0
			prev = day
			continue
		}

		if current > 0 && prev.AddDays(1).Equal(day) {
			current++
		} else {
			current = 1
		}
		longest = max(longest, current)
		prev = day
	}

	return longest
}
