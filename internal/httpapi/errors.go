package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps planner errors to HTTP status codes.
func statusFor(err error) int {
	var storage *planner.StorageError
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, planner.ErrPlanNotFound),
		errors.Is(err, plan.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrStalePlan):
		return http.StatusPreconditionFailed
	case errors.Is(err, plan.ErrSessionCompleted):
		return http.StatusConflict
	case errors.Is(err, plan.ErrInvalidPerformance),
		errors.Is(err, plan.ErrGenerationFailure),
		errors.Is(err, planner.ErrSubjectInactive),
		errors.Is(err, planner.ErrExamMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &storage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Fields: fields})
}
