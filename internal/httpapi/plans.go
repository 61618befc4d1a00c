package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/plan"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.svc.Subjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleExams(w http.ResponseWriter, r *http.Request) {
	frame, err := catalog.ParseTimeFrame(r.URL.Query().Get("frame"))
	if err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	exams, err := h.svc.Exams(r.Context(), frame, r.URL.Query().Get("subject_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if exams == nil {
		exams = []catalog.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePlan(r.Context(), req.toService())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writePlan(w, http.StatusCreated, p)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writePlan(w, http.StatusOK, p)
}

func (h *Handler) handleViews(w http.ResponseWriter, r *http.Request) {
	var now time.Time
	if raw := r.URL.Query().Get("now"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "now must be an RFC 3339 timestamp", nil)
			return
		}
		now = t
	}
	views, err := h.svc.Views(r.Context(), r.PathValue("id"), now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.CompleteSession(r.Context(), r.PathValue("id"), r.PathValue("sessionID"), req.toPerformance(), ifMatch(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writePlan(w, http.StatusOK, p)
}

func (h *Handler) handleAdapt(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.AdaptPlan(r.Context(), r.PathValue("id"), req.toPerformance(), ifMatch(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writePlan(w, http.StatusOK, p)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, p, h.now()); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "plan-"+p.ID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeBadRequest(w, "validation failed", formatValidationErrors(err))
		return false
	}
	return true
}

func (h *Handler) writePlan(w http.ResponseWriter, status int, p plan.LearningPlan) {
	if fp, err := plan.Fingerprint(p); err == nil {
		w.Header().Set("ETag", `"`+fp+`"`)
	}
	writeJSON(w, status, p)
}

// ifMatch returns the fingerprint a client expects the plan to have, or ""
// when any version is acceptable.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return ""
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
