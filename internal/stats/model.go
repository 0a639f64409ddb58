package stats

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidRange 在结束日期早于开始日期或年份不存在时返回
	ErrInvalidRange = errors.New("invalid range")
	// ErrMissingHabitData 在打卡记录引用了未提供的习惯时返回
	ErrMissingHabitData = errors.New("missing habit data")
)

// Aggregation 决定数值统计按"最新/平均"还是按"区间累计"输出
type Aggregation int

const (
	Absolute Aggregation = iota
	Cumulative
)

const (
	aggregationAbsolute   = "absolute"
	aggregationCumulative = "cumulative"
)

// ParseAggregation 解析持久层保存的字符串，空字符串视为 absolute
func ParseAggregation(value string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", aggregationAbsolute:
		return Absolute, nil
	case aggregationCumulative:
		return Cumulative, nil
	default:
		return Absolute, fmt.Errorf("unknown aggregation type %q", value)
	}
}

func (a Aggregation) String() string {
	switch a {
	case Cumulative:
		return aggregationCumulative
	default:
		return aggregationAbsolute
	}
}

func (a Aggregation) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Aggregation) UnmarshalText(text []byte) error {
	parsed, err := ParseAggregation(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Habit 是聚合引擎需要的习惯元数据快照
type Habit struct {
	ID              uint
	Name            string
	DescriptionHTML string
	IsActive        bool
	IsPublic        bool
	OrderIndex      int
	TracksValue     bool
	ValueUnit       *string
	Aggregation     Aggregation
	// CreatedAt 是可以存在打卡记录的第一天
	CreatedAt Date
}

// Log 是某习惯在某一天的一条打卡事实
type Log struct {
	HabitID uint
	Date    Date
	Status  bool
	Value   *float64
}

// Entry 是 Series 中单日的记录内容
type Entry struct {
	Status bool
	Value  *float64
}

// Series 是单个习惯按日期索引的打卡序列
// 缺失的日期与 status=false 的记录是两种不同状态，查询时必须通过 Lookup 的 ok 区分
type Series struct {
	entries map[Date]Entry
	dates   []Date
}

// NewSeries 构造序列；同一天出现多条记录时以最后一条为准
func NewSeries(logs []Log) Series {
	entries := make(map[Date]Entry, len(logs))
	for _, log := range logs {
		entries[log.Date] = Entry{Status: log.Status, Value: log.Value}
	}

	dates := make([]Date, 0, len(entries))
	for date := range entries {
		dates = append(dates, date)
	}
	slices.SortFunc(dates, Date.Compare)

	return Series{entries: entries, dates: dates}
}

// Lookup 返回某一天的记录，ok=false 表示当天没有记录
func (s Series) Lookup(date Date) (Entry, bool) {
	entry, ok := s.entries[date]
	return entry, ok
}

// Len 返回有记录的天数
func (s Series) Len() int { return len(s.dates) }

// Dates 返回升序排列的有记录日期
func (s Series) Dates() []Date {
	return slices.Clone(s.dates)
}

// Between 返回 [start, end] 内升序排列的有记录日期
func (s Series) Between(start, end Date) []Date {
	lo, _ := slices.BinarySearchFunc(s.dates, start, Date.Compare)
	hi, found := slices.BinarySearchFunc(s.dates, end, Date.Compare)
	if found {
		hi++
	}
	if lo >= hi {
		return nil
	}
	return s.dates[lo:hi]
}

// ValidateLogs 确认所有记录都能找到对应的习惯
func ValidateLogs(habits []Habit, logs []Log) error {
	known := make(map[uint]struct{}, len(habits))
	for _, habit := range habits {
		known[habit.ID] = struct{}{}
	}
	for _, log := range logs {
		if _, ok := known[log.HabitID]; !ok {
			return fmt.Errorf("%w: log on %s references habit %d", ErrMissingHabitData, log.Date, log.HabitID)
		}
	}
	return nil
}

// GroupLogs 按习惯拆分记录，保持输入顺序
func GroupLogs(logs []Log) map[uint][]Log {
	grouped := make(map[uint][]Log)
	for _, log := range logs {
		grouped[log.HabitID] = append(grouped[log.HabitID], log)
	}
	return grouped
}

// percentage 计算四舍五入（half-up）的整数百分比，分母为 0 时返回 0
func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (2*part*100 + total) / (2 * total)
}
