// Package httpapi exposes the planner over HTTP and websockets.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/watch"
)

// PlanService is the planner surface the handlers use.
type PlanService interface {
	Subjects(ctx context.Context) ([]catalog.Subject, error)
	Exams(ctx context.Context, frame catalog.TimeFrame, subjectID string) ([]catalog.Exam, error)
	CreatePlan(ctx context.Context, req planner.CreatePlanRequest) (plan.LearningPlan, error)
	GetPlan(ctx context.Context, planID string) (plan.LearningPlan, error)
	Views(ctx context.Context, planID string, now time.Time) (plan.Views, error)
	CompleteSession(ctx context.Context, planID, sessionID string, perf plan.SessionPerformance, expected string) (plan.LearningPlan, error)
	AdaptPlan(ctx context.Context, planID string, perf plan.SessionPerformance, expected string) (plan.LearningPlan, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds dependencies for the HTTP handler.
type Config struct {
	Service PlanService
	Hub     *watch.Hub             // optional; disables /watch when nil
	Checks  map[string]HealthCheck // run by /readyz
	Now     func() time.Time       // optional (default time.Now)
}

// Handler serves the planner API.
type Handler struct {
	svc      PlanService
	hub      *watch.Hub
	checks   map[string]HealthCheck
	now      func() time.Time
	validate *validator.Validate
}

// New creates the HTTP handler with all routes registered.
func New(cfg Config) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	h := &Handler{
		svc:      cfg.Service,
		hub:      cfg.Hub,
		checks:   cfg.Checks,
		now:      now,
		validate: newValidator(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("GET /v1/subjects", h.handleSubjects)
	mux.HandleFunc("GET /v1/exams", h.handleExams)

	mux.HandleFunc("POST /v1/plans", h.handleCreatePlan)
	mux.HandleFunc("GET /v1/plans/{id}", h.handleGetPlan)
	mux.HandleFunc("GET /v1/plans/{id}/views", h.handleViews)
	mux.HandleFunc("POST /v1/plans/{id}/sessions/{sessionID}/complete", h.handleCompleteSession)
	mux.HandleFunc("POST /v1/plans/{id}/adapt", h.handleAdapt)
	mux.HandleFunc("GET /v1/plans/{id}/export.xlsx", h.handleExport)
	if h.hub != nil {
		mux.HandleFunc("GET /v1/plans/{id}/watch", h.handleWatch)
	}

	return logRequests(mux)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
