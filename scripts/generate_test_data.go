package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/habitlog/internal/config"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/service"
	"github.com/habitlog/internal/stats"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const seedDays = 30

type seedHabit struct {
	input     service.HabitInput
	archive   bool
	hitRate   float64
	valueBase float64
}

func boolValue(v bool) *bool { return &v }

var seedHabits = []seedHabit{
	{input: service.HabitInput{Name: "晨跑", Description: "每天早上 **5 公里**", TracksValue: true, ValueUnit: "km", AggregationType: "cumulative"}, hitRate: 0.8, valueBase: 5},
	{input: service.HabitInput{Name: "阅读", Description: "睡前读书 30 分钟"}, hitRate: 0.9},
	{input: service.HabitInput{Name: "体重", TracksValue: true, ValueUnit: "kg", AggregationType: "absolute"}, hitRate: 0.6, valueBase: 70},
	{input: service.HabitInput{Name: "冥想"}, hitRate: 0.7},
	{input: service.HabitInput{Name: "写日记", IsPublic: boolValue(false)}, hitRate: 0.75},
	{input: service.HabitInput{Name: "学吉他"}, archive: true, hitRate: 0.5},
}

// 测试数据生成器
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	today := stats.DateIn(time.Now(), cfg.Location())
	habits, logs, err := seedHabitData(db.DB, today, rand.New(rand.NewSource(42)))
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}
	if habits == 0 {
		fmt.Println("习惯已存在，跳过创建")
		return
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("习惯: %d 个（含 1 个私有、1 个已归档）\n", habits)
	fmt.Printf("打卡: 最近 %d 天共 %d 条\n", seedDays, logs)
}

// seedHabitData 在空库中写入示例习惯与最近 seedDays 天的打卡，库中已有习惯时不做任何修改
func seedHabitData(gdb *gorm.DB, today stats.Date, rng *rand.Rand) (int, int, error) {
	var count int64
	if err := gdb.Model(&db.Habit{}).Count(&count).Error; err != nil {
		return 0, 0, fmt.Errorf("count habits: %w", err)
	}
	if count > 0 {
		return 0, 0, nil
	}

	start := today.AddDays(-(seedDays - 1))

	// 习惯的创建时间落在窗口起点，否则之前的打卡会被拒绝
	logger := logging.Discard()
	habits := service.NewHabitService(gdb, nil, logger, service.WithHabitClock(start.Time))
	habitLogs := service.NewHabitLogService(gdb, nil, logger, service.WithLogCalendar(time.UTC, today.Time))

	logCount := 0
	for _, seed := range seedHabits {
		habit, err := habits.Create(seed.input)
		if err != nil {
			return 0, 0, fmt.Errorf("create habit %s: %w", seed.input.Name, err)
		}
		for day := start; !today.Before(day); day = day.AddDays(1) {
			// 约一成的天数不留记录
			if rng.Float64() < 0.1 {
				continue
			}
			input := service.HabitLogInput{
				HabitID: habit.ID,
				Date:    day,
				Status:  rng.Float64() < seed.hitRate,
			}
			if seed.input.TracksValue && input.Status {
				value := float64(int((seed.valueBase+rng.Float64()*2)*10)) / 10
				input.Value = &value
			}
			if _, err := habitLogs.Upsert(input); err != nil {
				return 0, 0, fmt.Errorf("log habit %s on %s: %w", seed.input.Name, day, err)
			}
			logCount++
		}

		if seed.archive {
			if _, err := habits.Archive(habit.ID); err != nil {
				return 0, 0, fmt.Errorf("archive habit %s: %w", seed.input.Name, err)
			}
		}
	}

	return len(seedHabits), logCount, nil
}
