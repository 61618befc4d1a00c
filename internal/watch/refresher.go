package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

// DefaultSchedule re-derives watched views at the start of every minute.
const DefaultSchedule = "0 * * * * *"

const refreshTimeout = 10 * time.Second

// ViewSource derives the current views of a stored plan.
type ViewSource interface {
	Views(ctx context.Context, planID string, now time.Time) (plan.Views, error)
}

// Refresher periodically re-derives the views of watched plans so that
// sessions move from upcoming to completed as time passes.
type Refresher struct {
	cron *cron.Cron
	hub  *Hub
	src  ViewSource
	now  func() time.Time
}

// NewRefresher creates a refresher running on a six-field cron schedule
// (seconds first). An empty schedule uses DefaultSchedule.
func NewRefresher(hub *Hub, src ViewSource, schedule string) (*Refresher, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	r := &Refresher{
		cron: cron.New(cron.WithSeconds()),
		hub:  hub,
		src:  src,
		now:  hub.now,
	}
	if _, err := r.cron.AddFunc(schedule, r.Refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Refresher) Start() {
	slog.Info("view refresher started", "watched", len(r.hub.Watched()))
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	slog.Info("view refresher stopped")
}

// Refresh publishes fresh views for every watched plan.
func (r *Refresher) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	now := r.now()
	for _, id := range r.hub.Watched() {
		v, err := r.src.Views(ctx, id, now)
		if errors.Is(err, planner.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("view refresh failed", "plan_id", id, "error", err)
			continue
		}
		r.hub.Publish(id, v)
	}
}
