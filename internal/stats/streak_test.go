package stats

import (
	"testing"
)

func mustDate(t *testing.T, value string) Date {
	t.Helper()
	d, err := ParseDate(value)
	if err != nil {
		t.Fatalf("ParseDate(%q) returned error: %v", value, err)
	}
	return d
}

func floatPtr(v float64) *float64 { return &v }

func logsFor(t *testing.T, habitID uint, statuses map[string]bool) []Log {
	t.Helper()
	logs := make([]Log, 0, len(statuses))
	for date, status := range statuses {
		logs = append(logs, Log{HabitID: habitID, Date: mustDate(t, date), Status: status})
	}
	return logs
}

func TestCurrentStreakScenario(t *testing.T) {
	habit := Habit{ID: 1, IsPublic: true, IsActive: true, CreatedAt: mustDate(t, "2025-01-10")}
	series := NewSeries(logsFor(t, 1, map[string]bool{
		"2025-01-10": true,
		"2025-01-11": true,
		"2025-01-12": false,
		"2025-01-13": true,
	}))

	if got := CurrentStreak(habit, series, mustDate(t, "2025-01-13")); got != 1 {
		t.Fatalf("expected streak 1, got %d", got)
	}
	if got := CurrentStreak(habit, series, mustDate(t, "2025-01-11")); got != 2 {
		t.Fatalf("expected streak 2 as of the 11th, got %d", got)
	}
}

func TestCurrentStreakAnchors(t *testing.T) {
	created := "2025-03-01"
	tests := []struct {
		name     string
		statuses map[string]bool
		asOf     string
		want     int
	}{
		{name: "no logs", statuses: map[string]bool{}, asOf: "2025-03-10", want: 0},
		{name: "today done", statuses: map[string]bool{"2025-03-09": true, "2025-03-10": true}, asOf: "2025-03-10", want: 2},
		{name: "today not logged yet", statuses: map[string]bool{"2025-03-08": true, "2025-03-09": true}, asOf: "2025-03-10", want: 2},
		{name: "today explicitly missed", statuses: map[string]bool{"2025-03-09": true, "2025-03-10": false}, asOf: "2025-03-10", want: 1},
		{name: "today missed keeps run through yesterday", statuses: map[string]bool{"2025-03-07": true, "2025-03-08": true, "2025-03-09": true, "2025-03-10": false}, asOf: "2025-03-10", want: 3},
		{name: "today and yesterday missed", statuses: map[string]bool{"2025-03-08": true, "2025-03-09": false, "2025-03-10": false}, asOf: "2025-03-10", want: 0},
		{name: "gap two days ago", statuses: map[string]bool{"2025-03-08": true}, asOf: "2025-03-10", want: 0},
		{name: "gap inside run", statuses: map[string]bool{"2025-03-06": true, "2025-03-08": true, "2025-03-09": true}, asOf: "2025-03-09", want: 2},
		{name: "future logs ignored", statuses: map[string]bool{"2025-03-10": true, "2025-03-11": true}, asOf: "2025-03-10", want: 1},
		{name: "before creation ignored", statuses: map[string]bool{"2025-02-27": true, "2025-02-28": true, "2025-03-01": true, "2025-03-02": true}, asOf: "2025-03-02", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			habit := Habit{ID: 7, CreatedAt: mustDate(t, created)}
			series := NewSeries(logsFor(t, 7, tt.statuses))
			if got := CurrentStreak(habit, series, mustDate(t, tt.asOf)); got != tt.want {
				t.Fatalf("expected streak %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCurrentStreakMonotonicUnderInsertion(t *testing.T) {
	habit := Habit{ID: 1, CreatedAt: mustDate(t, "2024-01-01")}
	base := map[string]bool{
		"2024-06-10": true,
		"2024-06-11": true,
		"2024-06-12": true,
	}
	asOf := mustDate(t, "2024-06-12")

	before := CurrentStreak(habit, NewSeries(logsFor(t, 1, base)), asOf)
	if before != 3 {
		t.Fatalf("expected baseline streak 3, got %d", before)
	}

	extended := map[string]bool{"2024-06-09": true}
	for k, v := range base {
		extended[k] = v
	}
	if got := CurrentStreak(habit, NewSeries(logsFor(t, 1, extended)), asOf); got != before+1 {
		t.Fatalf("expected streak %d after prepending completed day, got %d", before+1, got)
	}

	missed := map[string]bool{"2024-06-09": false}
	for k, v := range base {
		missed[k] = v
	}
	if got := CurrentStreak(habit, NewSeries(logsFor(t, 1, missed)), asOf); got != before {
		t.Fatalf("expected streak unchanged at %d after prepending missed day, got %d", before, got)
	}
}

func TestLongestStreak(t *testing.T) {
	habit := Habit{ID: 3, CreatedAt: mustDate(t, "2024-01-01")}
	series := NewSeries(logsFor(t, 3, map[string]bool{
		"2024-01-01": true,
		"2024-01-02": true,
		"2024-01-03": false,
		"2024-01-04": true,
		"2024-01-05": true,
		"2024-01-06": true,
		"2024-01-08": true,
		"2024-01-09": true,
	}))

	if got := LongestStreak(habit, series); got != 3 {
		t.Fatalf("expected longest streak 3, got %d", got)
	}

	if got := LongestStreak(habit, NewSeries(nil)); got != 0 {
		t.Fatalf("expected longest streak 0 for empty series, got %d", got)
	}
}
