// Package watch pushes fresh progress views of plans to subscribers.
package watch

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

const subscriptionBuffer = 4

// Subscription receives the views of one plan until closed.
type Subscription struct {
	PlanID string
	C      <-chan plan.Views

	ch   chan plan.Views
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans plan views out to subscribers. It implements planner.ChangeNotifier.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
	now  func() time.Time
}

// NewHub creates a hub. A nil now uses time.Now.
func NewHub(now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
		now:  now,
	}
}

// Subscribe registers interest in a plan.
func (h *Hub) Subscribe(planID string) *Subscription {
	ch := make(chan plan.Views, subscriptionBuffer)
	s := &Subscription{PlanID: planID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[planID] == nil {
		h.subs[planID] = make(map[*Subscription]struct{})
	}
	h.subs[planID][s] = struct{}{}
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.PlanID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.PlanID)
		}
	}
	close(s.ch)
}

// Watched returns the ids of plans with at least one subscriber.
func (h *Hub) Watched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PlanChanged derives the plan's views at the hub's current time and
// publishes them.
func (h *Hub) PlanChanged(p plan.LearningPlan) {
	h.Publish(p.ID, plan.DeriveViews(p, h.now()))
}

// Publish delivers v to every subscriber of planID. A subscriber whose buffer
// is full loses its oldest pending value so it always sees the latest views.
func (h *Hub) Publish(planID string, v plan.Views) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[planID] {
		select {
		case s.ch <- v:
			continue
		default:
		}
		select {
		case <-s.ch:
			slog.Debug("watch subscriber lagging, dropped stale views", "plan_id", planID)
		default:
		}
		// Senders hold h.mu, so the slot freed above is still free.
		select {
		case s.ch <- v:
		default:
		}
	}
}
