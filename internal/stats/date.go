package stats

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 是所有对外输出使用的 ISO 日期格式
const DateLayout = "2006-01-02"

// Date 表示一个不带时区的日历日
// 内部统一保存为 UTC 零点，保证可以直接比较与作为 map key
type Date struct {
	t time.Time
}

// NewDate 根据年月日构造日期，越界的日/月会按 time.Date 规则进位
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf 取 t 在其自身时区下的日历日
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// DateIn 取 t 在指定时区下的日历日，loc 为空时使用 UTC
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(t.In(loc))
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }

func (d Date) Month() time.Month { return d.t.Month() }

func (d Date) Day() int { return d.t.Day() }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// MondayIndex 返回以周一为 0 的星期序号
func (d Date) MondayIndex() int {
	return (int(d.t.Weekday()) + 6) % 7
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil 返回 d 到 other 之间相差的天数，other 在前时为负
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / 86400)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) After(other Date) bool { return d.t.After(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare 适配 slices.SortFunc
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// Time 返回该日期的 UTC 零点
func (d Date) Time() time.Time { return d.t }

// StartOfMonth 返回当月第一天
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// StartOfYear 返回当年第一天
func (d Date) StartOfYear() Date {
	return NewDate(d.Year(), time.January, 1)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func minDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func daysInMonth(year int, month time.Month) int {
	return NewDate(year, month+1, 0).Day()
}
