package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/handler"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/router"
	"github.com/habitlog/internal/stats"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	handler   http.Handler
	db        *gorm.DB
	public    httpClient
	admin     httpClient
	baseURL   string
	adminPass string
	today     stats.Date
	habits    map[string]uint
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

type dashboardPayload struct {
	Habits []struct {
		ID                uint   `json:"id"`
		Name              string `json:"name"`
		CurrentStreak     int    `json:"current_streak"`
		CompletedDays     int    `json:"completed_days"`
		TotalDays         int    `json:"total_days"`
		ValueAggregations *struct {
			Week *float64 `json:"week"`
		} `json:"value_aggregations"`
	} `json:"habits"`
	Archived []struct {
		Name          string `json:"name"`
		LongestStreak int    `json:"longest_streak"`
	} `json:"archived"`
}

func TestE2E_TrackingLifecycle(t *testing.T) {
	suite := newE2ESuite(t)
	suite.login(t)

	t.Run("create habits", suite.testCreateHabits)
	t.Run("log days", suite.testLogDays)
	t.Run("public dashboard", suite.testPublicDashboard)
	t.Run("reorder", suite.testReorder)
	t.Run("history and heatmap", suite.testHistoryAndHeatmap)
	t.Run("archive and purge", suite.testArchiveAndPurge)
	t.Run("logout", suite.testLogout)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	now := time.Now().UTC()
	api, err := handler.NewAPI(gdb, handler.Options{
		AppPassword:   "e2e-secret",
		Location:      time.UTC,
		DashboardDays: 30,
		CacheSize:     32,
		CacheTTL:      time.Hour,
		Clock:         func() time.Time { return now },
	}, logging.Discard())
	if err != nil {
		t.Fatalf("failed to build api: %v", err)
	}

	engine := router.SetupRouter(api, router.Options{
		SessionSecret: "test-session-secret",
		Logger:        logging.Discard(),
	})

	return &e2eSuite{
		handler:   engine,
		db:        gdb,
		public:    newLocalClient(engine, false),
		admin:     newLocalClient(engine, true),
		baseURL:   "http://example.test",
		adminPass: "e2e-secret",
		today:     stats.DateOf(now),
		habits:    map[string]uint{},
	}
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()
	form := url.Values{"password": {s.adminPass}}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("failed to create login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.admin.Do(req)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed, status %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testCreateHabits(t *testing.T) {
	payloads := []map[string]interface{}{
		{"name": "Run", "tracks_value": true, "value_unit": "km", "value_aggregation_type": "cumulative"},
		{"name": "Read", "description": "**30** pages"},
		{"name": "Secret", "is_public": false},
	}

	for _, payload := range payloads {
		resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/habits", payload)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %v expected 201, got %d: %s", payload["name"], resp.StatusCode, readBody(t, resp))
		}
		var created struct {
			Habit struct {
				ID   uint   `json:"id"`
				Name string `json:"name"`
			} `json:"habit"`
		}
		decodeJSON(t, resp, &created)
		s.habits[created.Habit.Name] = created.Habit.ID
	}

	// 创建时间回拨十天，让之前的打卡计入统计
	if err := s.db.Model(&db.Habit{}).Where("1 = 1").
		UpdateColumn("created_at", s.today.AddDays(-9).Time()).Error; err != nil {
		t.Fatalf("failed to backdate habits: %v", err)
	}
	// 直接改库不会经过服务层，手动清理缓存
	resp := s.mustRequest(t, s.admin, http.MethodPost, "/admin/api/cache/clear", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear cache expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/habits", map[string]interface{}{"name": "   "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank name expected 400, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testLogDays(t *testing.T) {
	read := s.habits["Read"]
	for offset := -2; offset <= 0; offset++ {
		path := "/admin/api/habits/" + idStr(read) + "/logs/" + s.today.AddDays(offset).String()
		resp := s.mustRequestJSON(t, s.admin, http.MethodPut, path, map[string]interface{}{"status": true})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("log Read expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
		}
	}

	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/tracking", map[string]interface{}{
		"date": s.today.AddDays(-1).String(),
		"entries": []map[string]interface{}{
			{"habit_id": s.habits["Run"], "status": true, "value": 5},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save tracking expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/tracking", map[string]interface{}{
		"date": s.today.String(),
		"entries": []map[string]interface{}{
			{"habit_id": s.habits["Run"], "status": true, "value": 3},
			{"habit_id": s.habits["Secret"], "status": true},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save tracking expected 200, got %d", resp.StatusCode)
	}

	// 非数值习惯带数值应被拒绝
	path := "/admin/api/habits/" + idStr(read) + "/logs/" + s.today.String()
	resp = s.mustRequestJSON(t, s.admin, http.MethodPut, path, map[string]interface{}{"status": true, "value": 1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("value on plain habit expected 400, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.admin, http.MethodGet, "/admin/api/tracking?date="+s.today.String(), nil, nil)
	defer resp.Body.Close()
	var tracking struct {
		Habits []struct {
			Name     string `json:"name"`
			IsLogged bool   `json:"is_logged"`
		} `json:"habits"`
	}
	decodeJSON(t, resp, &tracking)
	if len(tracking.Habits) != 3 {
		t.Fatalf("expected 3 tracking items, got %d", len(tracking.Habits))
	}
	for _, item := range tracking.Habits {
		if !item.IsLogged {
			t.Fatalf("expected %s to be logged today", item.Name)
		}
	}
}

func (s *e2eSuite) testPublicDashboard(t *testing.T) {
	dashboard := s.fetchDashboard(t)
	if len(dashboard.Habits) != 2 {
		t.Fatalf("expected 2 public cards, got %d", len(dashboard.Habits))
	}

	run, read := dashboard.Habits[0], dashboard.Habits[1]
	if run.Name != "Run" || read.Name != "Read" {
		t.Fatalf("unexpected card order: %s, %s", run.Name, read.Name)
	}
	if read.CurrentStreak != 3 || read.CompletedDays != 3 || read.TotalDays != 10 {
		t.Fatalf("unexpected Read card: %+v", read)
	}
	if run.ValueAggregations == nil || run.ValueAggregations.Week == nil || *run.ValueAggregations.Week != 8 {
		t.Fatalf("expected Run weekly total 8, got %+v", run.ValueAggregations)
	}

	resp := s.mustRequest(t, s.public, http.MethodGet, "/admin/api/habits", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous admin access expected 401, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testReorder(t *testing.T) {
	ids := []uint{s.habits["Read"], s.habits["Run"], s.habits["Secret"]}
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/habits/reorder", map[string]interface{}{"habit_ids": ids})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder expected 200, got %d", resp.StatusCode)
	}

	dashboard := s.fetchDashboard(t)
	if dashboard.Habits[0].Name != "Read" {
		t.Fatalf("expected Read first after reorder, got %s", dashboard.Habits[0].Name)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/admin/api/habits/reorder", map[string]interface{}{"habit_ids": []uint{ids[0], ids[0]}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate reorder expected 400, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testHistoryAndHeatmap(t *testing.T) {
	resp := s.mustRequest(t, s.public, http.MethodGet, "/api/habits/"+idStr(s.habits["Read"])+"/history?days=7", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history expected 200, got %d", resp.StatusCode)
	}
	var history struct {
		Labels []string `json:"labels"`
		Data   []int    `json:"data"`
	}
	decodeJSON(t, resp, &history)
	if len(history.Labels) != 7 || history.Labels[6] != s.today.String() {
		t.Fatalf("unexpected history labels %v", history.Labels)
	}
	if history.Data[4] != 1 || history.Data[5] != 1 || history.Data[6] != 1 || history.Data[3] != 0 {
		t.Fatalf("unexpected history data %v", history.Data)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/habits/"+idStr(s.habits["Secret"])+"/history", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("private history expected 404, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/heatmap", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("heatmap expected 200, got %d", resp.StatusCode)
	}
	var heatmap struct {
		Year         int `json:"year"`
		OverallStats struct {
			BestDay *struct {
				Percentage int `json:"percentage"`
			} `json:"best_day"`
		} `json:"overall_stats"`
	}
	decodeJSON(t, resp, &heatmap)
	if heatmap.Year != s.today.Year() {
		t.Fatalf("expected current year %d, got %d", s.today.Year(), heatmap.Year)
	}
	if heatmap.OverallStats.BestDay == nil || heatmap.OverallStats.BestDay.Percentage != 100 {
		t.Fatalf("expected a fully completed best day, got %+v", heatmap.OverallStats.BestDay)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/heatmap/"+strconv.Itoa(s.today.Year())+"/badge.png", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("badge expected png, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func (s *e2eSuite) testArchiveAndPurge(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodDelete, "/admin/api/habits/"+idStr(s.habits["Read"]), nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive expected 200, got %d", resp.StatusCode)
	}

	dashboard := s.fetchDashboard(t)
	if len(dashboard.Habits) != 1 || dashboard.Habits[0].Name != "Run" {
		t.Fatalf("expected only Run to stay active, got %+v", dashboard.Habits)
	}
	if len(dashboard.Archived) != 1 || dashboard.Archived[0].Name != "Read" || dashboard.Archived[0].LongestStreak != 3 {
		t.Fatalf("unexpected archived summaries %+v", dashboard.Archived)
	}

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/admin/api/habits/"+idStr(s.habits["Secret"])+"/purge", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purge expected 200, got %d", resp.StatusCode)
	}

	var remaining int64
	if err := s.db.Model(&db.HabitLog{}).Where("habit_id = ?", s.habits["Secret"]).Count(&remaining).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected purged habit logs to be removed, got %d", remaining)
	}

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/admin/api/habits/"+idStr(s.habits["Secret"])+"/purge", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second purge expected 404, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testLogout(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodPost, "/logout", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.admin, http.MethodGet, "/admin/api/habits", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("admin access after logout expected 401, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) fetchDashboard(t *testing.T) dashboardPayload {
	t.Helper()
	resp := s.mustRequest(t, s.public, http.MethodGet, "/api/dashboard", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard expected 200, got %d", resp.StatusCode)
	}
	var payload dashboardPayload
	decodeJSON(t, resp, &payload)
	return payload
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, bytes.NewReader(data), headers)
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
