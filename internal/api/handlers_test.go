package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/geoip"
	"github.com/axellelanca/visittracker/internal/models"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/axellelanca/visittracker/internal/useragent"
)

type stubGeo struct{ lookups []string }

func (s *stubGeo) Lookup(_ context.Context, ip string) geoip.Result {
	s.lookups = append(s.lookups, ip)
	return geoip.Result{Status: geoip.Available, Country: "United States", City: "Austin, Texas", Org: "Spectrum"}
}

type stubParser struct{}

func (stubParser) Parse(ua string) useragent.Parsed {
	if strings.Contains(ua, "Windows") {
		return useragent.Parsed{BrowserName: "Chrome", BrowserVersion: "120", OSName: "Windows", OSVersion: "10"}
	}
	return useragent.Parsed{}
}

func setupRouter(t *testing.T, resetEnabled bool) (*gin.Engine, *stubGeo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.NewVisitRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	geo := &stubGeo{}
	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	SetupRoutes(router,
		services.NewVisitService(repo, geo, stubParser{}),
		services.NewAdminService(repo, resetEnabled),
	)
	return router, geo
}

func do(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func enter(t *testing.T, router *gin.Engine, body string, headers map[string]string) uint {
	t.Helper()
	w := do(router, http.MethodPost, "/api/track/enter", body, headers)
	if w.Code != http.StatusCreated {
		t.Fatalf("enter status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[struct {
		VisitorID uint `json:"visitor_id"`
	}](t, w).VisitorID
}

func listVisits(t *testing.T, router *gin.Engine) []models.Visit {
	t.Helper()
	w := do(router, http.MethodGet, "/api/visitors", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	return decode[[]models.Visit](t, w)
}

func TestHealthAndRequestID(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := do(router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated X-Request-ID")
	}

	w = do(router, http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "abc"})
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want echoed abc", got)
	}
}

func TestEnterHandler(t *testing.T) {
	router, geo := setupRouter(t, true)

	id := enter(t, router, `{"visited_url":"https://example.com","screen_resolution":"1920x1080"}`, map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		"X-Forwarded-For": "203.0.113.10, 10.0.0.2",
	})
	if id == 0 {
		t.Fatal("visitor_id = 0")
	}

	visits := listVisits(t, router)
	if len(visits) != 1 {
		t.Fatalf("got %d visits", len(visits))
	}
	v := visits[0]
	if v.ISP != "Spectrum (Broadband/Home)" || v.Device != "Windows PC" || v.ScreenResolution != "1920x1080" {
		t.Errorf("visit = %+v", v)
	}
	if v.IPAddress == nil || *v.IPAddress != "203.0.113.10, 10.0.0.2" {
		t.Errorf("ip_address = %v", v.IPAddress)
	}
	if len(geo.lookups) != 1 || geo.lookups[0] != "203.0.113.10" {
		t.Errorf("lookups = %v", geo.lookups)
	}
}

func TestEnterHandlerValidation(t *testing.T) {
	router, _ := setupRouter(t, true)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing url", `{"action":"VIEW"}`, "Missing visited_url"},
		{"malformed body", `{"visited_url":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/track/enter", tt.body, nil)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("got %d %s, want 400 %q", w.Code, w.Body.String(), tt.want)
			}
		})
	}
}

func TestLifecycleHandlers(t *testing.T) {
	router, _ := setupRouter(t, true)
	id := enter(t, router, `{"visited_url":"https://example.com"}`, nil)
	idJSON := strings.TrimSpace(string(mustJSON(t, id)))

	w := do(router, http.MethodPost, "/api/track/action", `{"visitor_id":`+idJSON+`,"action":"SCROLL","motion_status":"Walking"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Action tracked successfully") {
		t.Fatalf("action = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodPost, "/api/track/location", `{"visitor_id":`+idJSON+`,"lat":42.8,"lng":"-73.9"}`, nil)
	loc := decode[struct {
		Success bool   `json:"success"`
		Coords  string `json:"coords"`
	}](t, w)
	if w.Code != http.StatusOK || !loc.Success || loc.Coords != "42.8, -73.9" {
		t.Fatalf("location = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodPost, "/api/track/leave", `{"visitor_id":`+idJSON+`}`, nil)
	leave := decode[struct {
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}](t, w)
	if w.Code != http.StatusOK || leave.Message != "Exit tracked successfully" || leave.Duration < 0 {
		t.Fatalf("leave = %d %s", w.Code, w.Body.String())
	}

	v := listVisits(t, router)[0]
	if v.LastAction != "SCROLL" || v.MotionStatus != "Walking" || v.Geolocation == nil || *v.Geolocation != "42.8, -73.9" || v.LeftAt == nil {
		t.Errorf("visit = %+v", v)
	}
}

func TestLifecycleHandlersValidation(t *testing.T) {
	router, _ := setupRouter(t, true)

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/api/track/action", `{"visitor_id":1}`, "Missing visitor_id or action"},
		{"/api/track/action", ``, "Missing visitor_id or action"},
		{"/api/track/location", `{"lat":1,"lng":2}`, "visitor_id required"},
		{"/api/track/leave", `{}`, "Missing visitor_id"},
		{"/api/track/leave", `{"visitor_id":"abc"}`, "Invalid request body"},
		{"/api/track/leave", `{"visitor_id":""}`, "Missing visitor_id"},
		{"/api/track/action", `{"visitor_id":"0","action":"X"}`, "Missing visitor_id or action"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			w := do(router, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("got %d %s, want 400 %q", w.Code, w.Body.String(), tt.want)
			}
		})
	}
}

func TestLifecycleHandlersStringVisitorID(t *testing.T) {
	router, _ := setupRouter(t, true)
	id := enter(t, router, `{"visited_url":"https://example.com"}`, nil)
	idJSON := `"` + strings.TrimSpace(string(mustJSON(t, id))) + `"`

	w := do(router, http.MethodPost, "/api/track/action", `{"visitor_id":`+idJSON+`,"action":"CLICK_PDF"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("action = %d %s", w.Code, w.Body.String())
	}
	w = do(router, http.MethodPost, "/api/track/location", `{"visitor_id":`+idJSON+`,"lat":"48.85","lng":"2.35"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "48.85, 2.35") {
		t.Fatalf("location = %d %s", w.Code, w.Body.String())
	}
	w = do(router, http.MethodPost, "/api/track/leave", `{"visitor_id":`+idJSON+`}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Exit tracked successfully") {
		t.Fatalf("leave = %d %s", w.Code, w.Body.String())
	}

	v := listVisits(t, router)[0]
	if v.LastAction != "CLICK_PDF" || v.Geolocation == nil || *v.Geolocation != "48.85, 2.35" || v.LeftAt == nil {
		t.Errorf("visit = %+v", v)
	}
}

func TestVisitorIDUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    VisitorID
		wantErr bool
	}{
		{`42`, 42, false},
		{`"42"`, 42, false},
		{`" 7 "`, 7, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id VisitorID
			err := json.Unmarshal([]byte(tt.in), &id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && id != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, id, tt.want)
			}
		})
	}
}

func TestUnknownVisitorIsNotAnError(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := do(router, http.MethodPost, "/api/track/leave", `{"visitor_id":4242}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"duration":0`) {
		t.Errorf("leave unknown = %d %s", w.Code, w.Body.String())
	}
	w = do(router, http.MethodPost, "/api/track/action", `{"visitor_id":4242,"action":"X"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("action unknown = %d", w.Code)
	}
	w = do(router, http.MethodPost, "/api/track/location", `{"visitor_id":4242,"lat":null}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"coords":", "`) {
		t.Errorf("location unknown = %d %s", w.Code, w.Body.String())
	}
}

func TestDeleteVisitorHandler(t *testing.T) {
	router, _ := setupRouter(t, true)
	id := enter(t, router, `{"visited_url":"https://example.com"}`, nil)
	path := "/api/visitors/" + strings.TrimSpace(string(mustJSON(t, id)))

	w := do(router, http.MethodDelete, path, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Log deleted successfully") {
		t.Fatalf("delete = %d %s", w.Code, w.Body.String())
	}

	for _, p := range []string{path, "/api/visitors/abc", "/api/visitors/0"} {
		w = do(router, http.MethodDelete, p, "", nil)
		if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Log not found") {
			t.Errorf("DELETE %s = %d %s, want 404", p, w.Code, w.Body.String())
		}
	}
}

func TestInitHandler(t *testing.T) {
	router, _ := setupRouter(t, true)
	enter(t, router, `{"visited_url":"https://example.com"}`, nil)

	w := do(router, http.MethodGet, "/api/init", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Visitor database initialized successfully!") {
		t.Fatalf("init = %d %s", w.Code, w.Body.String())
	}
	if visits := listVisits(t, router); len(visits) != 0 {
		t.Errorf("got %d visits after init", len(visits))
	}

	disabled, _ := setupRouter(t, false)
	if w := do(disabled, http.MethodGet, "/api/init", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("disabled init = %d, want 404", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)
	enter(t, router, `{"visited_url":"https://example.com"}`, nil)

	w := do(router, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "visittracker_visits_entered_total") {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestScalarText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`42.80`, "42.80"},
		{`-7`, "-7"},
		{`"12.5"`, "12.5"},
		{`null`, ""},
		{``, ""},
		{`true`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := scalarText(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("scalarText(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRespondErrorValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, customerrors.NewValidationError("x", "Missing x"), "ignored")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Missing x") {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
