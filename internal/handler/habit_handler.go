package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/service"
	"github.com/habitlog/internal/stats"
)

type habitCreatePayload struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	IsPublic             *bool  `json:"is_public"`
	TracksValue          bool   `json:"tracks_value"`
	ValueUnit            string `json:"value_unit"`
	ValueAggregationType string `json:"value_aggregation_type"`
}

type habitUpdatePayload struct {
	Name                 *string `json:"name"`
	Description          *string `json:"description"`
	IsActive             *bool   `json:"is_active"`
	IsPublic             *bool   `json:"is_public"`
	TracksValue          *bool   `json:"tracks_value"`
	ValueUnit            *string `json:"value_unit"`
	ValueAggregationType *string `json:"value_aggregation_type"`
}

type habitLogPayload struct {
	Status *bool    `json:"status"`
	Value  *float64 `json:"value"`
}

type trackingPayload struct {
	Date    string             `json:"date"`
	Entries []service.DayEntry `json:"entries"`
}

// ListHabits 返回全部习惯（含私有与归档）
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		ActiveOnly: c.Query("active") == "true",
		PublicOnly: c.Query("public") == "true",
		Search:     c.Query("search"),
	}

	habits, err := a.habits.List(filter)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitCreatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(service.HabitInput{
		Name:            payload.Name,
		Description:     payload.Description,
		IsPublic:        payload.IsPublic,
		TracksValue:     payload.TracksValue,
		ValueUnit:       payload.ValueUnit,
		AggregationType: payload.ValueAggregationType,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 按白名单字段更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitUpdatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Update(id, service.HabitUpdate{
		Name:            payload.Name,
		Description:     payload.Description,
		IsActive:        payload.IsActive,
		IsPublic:        payload.IsPublic,
		TracksValue:     payload.TracksValue,
		ValueUnit:       payload.ValueUnit,
		AggregationType: payload.ValueAggregationType,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// ArchiveHabit 归档习惯，保留历史记录
func (a *API) ArchiveHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Archive(id)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// PurgeHabit 永久删除习惯及其记录
func (a *API) PurgeHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Purge(id); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReorderHabits 按给定顺序重排习惯
func (a *API) ReorderHabits(c *gin.Context) {
	var payload struct {
		HabitIDs []uint `json:"habit_ids"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	if err := a.habits.Reorder(payload.HabitIDs); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reordered": len(payload.HabitIDs)})
}

// PutHabitLog 写入或覆盖某天的打卡
func (a *API) PutHabitLog(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}
	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	var payload habitLogPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	if payload.Status == nil {
		respondError(c, http.StatusBadRequest, "缺少打卡状态")
		return
	}

	record, err := a.habitLogs.Upsert(service.HabitLogInput{
		HabitID: habitID,
		Date:    date,
		Status:  *payload.Status,
		Value:   payload.Value,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": serializeHabitLog(*record)})
}

// DeleteHabitLog 删除某天的打卡
func (a *API) DeleteHabitLog(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}
	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	deleted, err := a.habitLogs.Delete(habitID, date)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "habit_id": habitID, "date": date})
}

// GetTracking 返回某一天（默认今天）全部活跃习惯的打卡状态
func (a *API) GetTracking(c *gin.Context) {
	date := a.dashboard.Today()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := stats.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的日期")
			return
		}
		date = parsed
	}

	items, err := a.habitLogs.TrackingDay(date)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "habits": items})
}

// SaveTracking 批量保存某一天的打卡
func (a *API) SaveTracking(c *gin.Context) {
	var payload trackingPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date, err := stats.ParseDate(payload.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	saved, err := a.habitLogs.SaveDay(date, payload.Entries)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "saved": saved})
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":                     habit.ID,
		"name":                   habit.Name,
		"description":            habit.Description,
		"is_active":              habit.IsActive,
		"is_public":              habit.IsPublic,
		"order_index":            habit.OrderIndex,
		"tracks_value":           habit.TracksValue,
		"value_unit":             habit.ValueUnit,
		"value_aggregation_type": habit.ValueAggregationType,
		"created_at":             habit.CreatedAt.Format(time.RFC3339),
		"updated_at":             habit.UpdatedAt.Format(time.RFC3339),
	}
}

func serializeHabitLog(log db.HabitLog) gin.H {
	return gin.H{
		"id":       log.ID,
		"habit_id": log.HabitID,
		"date":     log.LogDate.Format(stats.DateLayout),
		"status":   log.Status,
		"value":    log.Value,
	}
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalid):
		respondError(c, http.StatusBadRequest, "习惯参数无效")
	case errors.Is(err, service.ErrLogInvalid):
		respondError(c, http.StatusBadRequest, "打卡数据无效")
	case errors.Is(err, stats.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, "日期范围无效")
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
