package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/platform/config"
)

const mathYAML = `
id: math
name: Mathematics
topics:
  - id: algebra
    name: Algebra
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "math.yaml"), []byte(mathYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Planner: config.PlannerConfig{
			DefaultSpanDays: 14,
			Policy:          config.PolicyDifficulty,
			RefreshSchedule: "0 * * * * *",
		},
		Log:         config.LogConfig{Level: "info", Format: "json"},
		CatalogPath: dir,
	}
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestApp_CreatePlan(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/plans", strings.NewReader(`{"subject_id":"math"}`))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID       string            `json:"id"`
		Sessions []json.RawMessage `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ID == "" || len(body.Sessions) != 7 {
		t.Errorf("plan id = %q, sessions = %d, want 7", body.ID, len(body.Sessions))
	}
}

func TestApp_SQLiteDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "plans.db")

	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(cfg.Database.SQLitePath); err != nil {
		t.Errorf("sqlite file not created: %v", err)
	}
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing catalog", func(c *config.Config) { c.CatalogPath = filepath.Join(t.TempDir(), "missing") }},
		{"bad refresh schedule", func(c *config.Config) { c.Planner.RefreshSchedule = "hourly" }},
		{"bad database url", func(c *config.Config) {
			c.Database.Driver = config.DriverPostgres
			c.Database.URL = "://nope"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, err := newApp(t.Context(), cfg); err == nil {
				t.Fatal("newApp() should fail")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "plan_id", "p1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "plan_id=p1") {
		t.Errorf("output = %q, want text record", out)
	}
}
