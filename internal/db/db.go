package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath 是未配置 DATABASE_PATH 时使用的数据库文件
const DefaultPath = "data/habitlog.db"

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 data/habitlog.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = DefaultPath
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Migrate 为核心模型建表，并按版本号执行尚未应用的数据迁移
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&Habit{}, &HabitLog{}, &SchemaVersion{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, m := range migrations {
		var applied int64
		if err := gdb.Model(&SchemaVersion{}).Where("version = ?", m.version).Count(&applied).Error; err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}

		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaVersion{Version: m.version, Name: m.name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

// AppliedVersions 返回已执行的迁移版本号，按升序排列
func AppliedVersions(gdb *gorm.DB) ([]int, error) {
	var versions []int
	if err := gdb.Model(&SchemaVersion{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("list schema versions: %w", err)
	}
	return versions, nil
}

// Close 关闭底层连接
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
