// Package plan generates learning plans, derives progress views from them and
// adapts them in response to session performance.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-planner/internal/calendar"
	"github.com/p-n-ai/pai-planner/internal/catalog"
)

// DefaultSpanDays is the plan length used when neither an end date nor an exam is given.
const DefaultSpanDays = 14

// ErrGenerationFailure means the plan's date range could not be computed.
var ErrGenerationFailure = errors.New("plan generation failed")

// GenerateRequest describes the plan to build. A zero End defaults to the
// exam date when Exam is set, otherwise to Start plus the engine's span.
type GenerateRequest struct {
	Subject catalog.Subject
	Exam    *catalog.Exam
	Start   time.Time
	End     time.Time
}

// EngineConfig holds dependencies for the plan engine.
type EngineConfig struct {
	Policy          Policy           // adaptation policy (default MinimalPolicy)
	DefaultSpanDays int              // plan length without end date or exam (default 14)
	Now             func() time.Time // clock for adaptation records (default time.Now)
}

// Engine generates and adapts plans. It holds no per-plan state and is safe
// for concurrent use; callers serialize Adapt calls per plan when order matters.
type Engine struct {
	policy   Policy
	spanDays int
	now      func() time.Time
}

// NewEngine creates a new plan engine.
func NewEngine(cfg EngineConfig) *Engine {
	policy := cfg.Policy
	if policy == nil {
		policy = MinimalPolicy{}
	}
	span := cfg.DefaultSpanDays
	if span == 0 {
		span = DefaultSpanDays
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		policy:   policy,
		spanDays: span,
		now:      now,
	}
}

// ResolveEnd returns the end date a plan starting at start would use.
func (e *Engine) ResolveEnd(start, end time.Time, exam *catalog.Exam) time.Time {
	if !end.IsZero() {
		return end
	}
	if exam != nil {
		return exam.Date
	}
	return calendar.AddDays(start, e.spanDays)
}

// Generate builds a new plan for the requested subject and range.
// An end date before the start yields a plan without sessions.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (LearningPlan, error) {
	if err := ctx.Err(); err != nil {
		return LearningPlan{}, err
	}
	if req.Start.IsZero() {
		return LearningPlan{}, fmt.Errorf("%w: start date is missing", ErrGenerationFailure)
	}
	end := e.ResolveEnd(req.Start, req.End, req.Exam)
	if end.IsZero() {
		return LearningPlan{}, fmt.Errorf("%w: exam %s has no date", ErrGenerationFailure, req.Exam.ID)
	}

	sessions := Schedule(req.Subject, req.Start, end)
	if end.Before(req.Start) {
		end = req.Start
	}

	p := LearningPlan{
		ID:                uuid.NewString(),
		Subject:           req.Subject,
		Exam:              req.Exam,
		StartDate:         req.Start,
		EndDate:           end,
		Sessions:          sessions,
		AdaptationHistory: []Adaptation{},
	}
	p = p.Clone()

	if err := ctx.Err(); err != nil {
		return LearningPlan{}, err
	}

	slog.Debug("plan generated",
		"plan_id", p.ID,
		"subject_id", p.Subject.ID,
		"sessions", len(p.Sessions),
	)
	return p, nil
}

// Adapt applies the engine's policy to p and returns the resulting plan with
// one more adaptation record. p itself is left untouched. Policy errors are
// returned as-is and no plan is produced.
func (e *Engine) Adapt(ctx context.Context, p LearningPlan, perf SessionPerformance) (LearningPlan, error) {
	if err := ctx.Err(); err != nil {
		return LearningPlan{}, err
	}
	if err := perf.Validate(); err != nil {
		return LearningPlan{}, err
	}

	now := e.now()
	rev, err := e.policy.Revise(ctx, p.Clone(), perf, now)
	if err != nil {
		return LearningPlan{}, err
	}
	if err := ctx.Err(); err != nil {
		return LearningPlan{}, err
	}

	next := p.Clone()
	if rev.Sessions != nil {
		next.Sessions = rev.Sessions
	}
	desc := rev.Description
	switch {
	case desc != "":
	case rev.Sessions != nil:
		desc = RevisedDescription
	default:
		desc = MinimalDescription
	}
	next.AdaptationHistory = append(next.AdaptationHistory, Adaptation{
		ID:          uuid.NewString(),
		Date:        now,
		Reason:      ReasonPerformanceChange,
		Description: desc,
	})

	slog.Debug("plan adapted",
		"plan_id", next.ID,
		"accuracy", perf.Accuracy(),
		"history", len(next.AdaptationHistory),
	)
	return next, nil
}
