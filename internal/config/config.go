package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	DatabasePath  string
	SessionSecret string
	AppPassword   string
	GinMode       string
	Environment   string
	CacheTTL      time.Duration
	CacheSize     int
	DashboardDays int
	Timezone      string
	LogLevel      string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 数值项解析失败时保留原始错误值（负数或 0），交由 Validate 统一报告。
func Load() AppConfig {
	port := envOrDefault("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		DatabasePath:  envOrDefault("DATABASE_PATH", "data/habitlog.db"),
		SessionSecret: envOrDefault("SESSION_SECRET", "habitlog-dev-secret"),
		AppPassword:   envOrDefault("APP_PASSWORD", "changeme"),
		GinMode:       envOrDefault("GIN_MODE", "release"),
		Environment:   envOrDefault("APP_ENV", "development"),
		CacheTTL:      time.Duration(envInt("CACHE_DURATION", 3600)) * time.Second,
		CacheSize:     envInt("CACHE_SIZE", 64),
		DashboardDays: envInt("DASHBOARD_DAYS", 30),
		Timezone:      envOrDefault("TZ_NAME", "Local"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
	}
}

// Validate 检查配置并一次性返回所有问题
func (c AppConfig) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.CacheTTL <= 0 {
		problems = append(problems, "CACHE_DURATION must be a positive number of seconds")
	}
	if c.CacheSize <= 0 {
		problems = append(problems, "CACHE_SIZE must be positive")
	}
	if c.DashboardDays <= 0 {
		problems = append(problems, "DASHBOARD_DAYS must be positive")
	}
	if strings.TrimSpace(c.AppPassword) == "" {
		problems = append(problems, "APP_PASSWORD cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid TZ_NAME '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid LOG_LEVEL '%s'", c.LogLevel))
	}

	if c.IsProduction() && c.SessionSecret == "habitlog-dev-secret" {
		problems = append(problems, "SESSION_SECRET must be set in production")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// Location 返回用于确定"今天"的时区，无法解析时回退到 time.Local
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsProduction 决定 Cookie 是否带 Secure 标记
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
