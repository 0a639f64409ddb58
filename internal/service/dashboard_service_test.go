package service

import (
	"errors"
	"testing"
	"time"

	"github.com/habitlog/internal/cache"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/stats"
	"gorm.io/gorm"
)

type dashboardFixture struct {
	gdb       *gorm.DB
	payloads  *cache.Cache[any]
	dashboard *DashboardService
	logs      *HabitLogService
	habits    map[string]db.Habit
}

func setupDashboardFixture(t *testing.T) dashboardFixture {
	t.Helper()
	gdb := setupHabitTestDB(t)

	created := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	unit := "km"
	records := []db.Habit{
		{Name: "Run", IsActive: true, IsPublic: true, OrderIndex: 0, TracksValue: true, ValueUnit: &unit, ValueAggregationType: "cumulative", Description: "**5k**", CreatedAt: created},
		{Name: "Read", IsActive: true, IsPublic: true, OrderIndex: 1, ValueAggregationType: "absolute", CreatedAt: created},
		{Name: "Secret", IsActive: true, IsPublic: false, OrderIndex: 2, ValueAggregationType: "absolute", CreatedAt: created},
		{Name: "Old", IsActive: false, IsPublic: true, OrderIndex: 3, ValueAggregationType: "absolute", CreatedAt: created.AddDate(-1, 0, 0)},
	}
	if err := gdb.Create(&records).Error; err != nil {
		t.Fatalf("seed habits: %v", err)
	}

	habits := make(map[string]db.Habit, len(records))
	for _, record := range records {
		habits[record.Name] = record
	}

	now := func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	payloads := cache.New[any](16, time.Hour, logging.Discard())
	logs := NewHabitLogService(gdb, payloads, logging.Discard(), WithLogCalendar(time.UTC, now))
	dashboard := NewDashboardService(gdb, payloads, logging.Discard(),
		WithClock(now),
		WithLocation(time.UTC),
		WithWindowDays(30),
	)

	return dashboardFixture{gdb: gdb, payloads: payloads, dashboard: dashboard, logs: logs, habits: habits}
}

func (f dashboardFixture) log(t *testing.T, name, date string, status bool, value *float64) {
	t.Helper()
	if _, err := f.logs.Upsert(HabitLogInput{HabitID: f.habits[name].ID, Date: mustDate(t, date), Status: status, Value: value}); err != nil {
		t.Fatalf("Upsert %s %s: %v", name, date, err)
	}
}

func TestDashboardServiceAssemblesPublicHabits(t *testing.T) {
	f := setupDashboardFixture(t)
	f.log(t, "Run", "2025-03-09", true, floatPtr(5))
	f.log(t, "Run", "2025-03-10", true, floatPtr(3))
	f.log(t, "Read", "2025-03-09", true, nil)
	f.log(t, "Secret", "2025-03-10", true, nil)
	f.log(t, "Old", "2024-06-01", true, nil)

	dashboard, err := f.dashboard.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}

	if dashboard.AsOf.String() != "2025-03-10" {
		t.Fatalf("unexpected as_of %s", dashboard.AsOf)
	}
	if len(dashboard.Habits) != 2 || dashboard.Habits[0].Name != "Run" {
		t.Fatalf("expected Run and Read cards, got %+v", dashboard.Habits)
	}
	run := dashboard.Habits[0]
	if run.CurrentStreak != 2 || run.ValueTotals == nil || *run.ValueTotals.Week != 8 {
		t.Fatalf("unexpected run card: %+v", run)
	}
	if run.DescriptionHTML != "<p><strong>5k</strong></p>\n" {
		t.Fatalf("unexpected description html %q", run.DescriptionHTML)
	}
	if read := dashboard.Habits[1]; read.CurrentStreak != 1 {
		t.Fatalf("expected read streak anchored on yesterday, got %d", read.CurrentStreak)
	}
	if len(dashboard.Archived) != 1 || dashboard.Archived[0].Name != "Old" {
		t.Fatalf("unexpected archived list: %+v", dashboard.Archived)
	}
}

func TestDashboardServiceCachesUntilWrite(t *testing.T) {
	f := setupDashboardFixture(t)
	f.log(t, "Read", "2025-03-10", true, nil)

	if _, err := f.dashboard.Dashboard(); err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if _, err := f.dashboard.Dashboard(); err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if got := f.dashboard.CacheStats().Computations; got != 1 {
		t.Fatalf("expected a single computation, got %d", got)
	}

	f.log(t, "Read", "2025-03-09", true, nil)

	dashboard, err := f.dashboard.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if got := f.dashboard.CacheStats().Computations; got != 2 {
		t.Fatalf("expected recomputation after write, got %d", got)
	}
	if dashboard.Habits[1].CurrentStreak != 2 {
		t.Fatalf("expected fresh streak 2, got %d", dashboard.Habits[1].CurrentStreak)
	}

	f.dashboard.ClearCache()
	if f.dashboard.CacheStats().Entries != 0 {
		t.Fatal("expected manual clear to purge entries")
	}
}

func TestDashboardServiceHeatmap(t *testing.T) {
	f := setupDashboardFixture(t)
	f.log(t, "Run", "2025-01-02", true, floatPtr(1))
	f.log(t, "Read", "2025-01-02", false, nil)
	f.log(t, "Secret", "2025-01-02", true, nil)
	f.log(t, "Old", "2024-12-31", true, nil)

	heatmap, err := f.dashboard.Heatmap(2025)
	if err != nil {
		t.Fatalf("Heatmap returned error: %v", err)
	}
	jan2 := heatmap.Months[0].Days[1]
	// Run、Read 与归档的 Old 均为公开习惯
	if jan2.TotalCount != 3 || jan2.CompletedCount != 1 || *jan2.CompletionPercentage != 33 {
		t.Fatalf("unexpected Jan 2 cell: %+v", jan2)
	}

	if _, err := f.dashboard.Heatmap(0); !errors.Is(err, stats.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDashboardServiceHistory(t *testing.T) {
	f := setupDashboardFixture(t)
	f.log(t, "Read", "2025-03-08", false, nil)
	f.log(t, "Read", "2025-03-10", true, nil)

	history, err := f.dashboard.History(f.habits["Read"].ID, 3)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history.Labels) != 3 || history.Labels[0] != "2025-03-08" {
		t.Fatalf("unexpected labels %v", history.Labels)
	}
	if history.Statuses[1] != nil || history.Data[2] != 1 {
		t.Fatalf("unexpected history %+v", history)
	}

	defaulted, err := f.dashboard.History(f.habits["Read"].ID, 0)
	if err != nil || len(defaulted.Labels) != DefaultHistoryDays {
		t.Fatalf("expected %d default days, got %d (%v)", DefaultHistoryDays, len(defaulted.Labels), err)
	}

	if _, err := f.dashboard.History(f.habits["Secret"].ID, 30); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("private habit must not be exposed, got %v", err)
	}
	if _, err := f.dashboard.History(f.habits["Read"].ID, MaxHistoryDays+1); !errors.Is(err, stats.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDashboardServiceArchived(t *testing.T) {
	f := setupDashboardFixture(t)
	f.log(t, "Old", "2024-06-01", true, nil)
	f.log(t, "Old", "2024-06-02", false, nil)

	archived, err := f.dashboard.Archived()
	if err != nil {
		t.Fatalf("Archived returned error: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("expected 1 archived habit, got %d", len(archived))
	}
	if archived[0].TotalCompletions != 1 || archived[0].TotalDaysTracked != 2 || archived[0].CompletionRate != 50 {
		t.Fatalf("unexpected summary %+v", archived[0])
	}
}
