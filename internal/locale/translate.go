package locale

import "time"

var chineseMonths = [...]string{"一月", "二月", "三月", "四月", "五月", "六月", "七月", "八月", "九月", "十月", "十一月", "十二月"}

// Pick returns the text matching the request language, defaulting to English.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageChinese {
		if chinese != "" {
			return chinese
		}
		return english
	}
	if english != "" {
		return english
	}
	return chinese
}

// MonthName 返回本地化的月份全称
func MonthName(language string, month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	return Pick(language, month.String(), chineseMonths[month-1])
}
