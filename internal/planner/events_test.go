package planner_test

import (
	"testing"

	"github.com/p-n-ai/pai-planner/internal/planner"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := planner.NewMemoryEventLogger()

	err := logger.LogEvent(t.Context(), planner.Event{
		PlanID:    "plan-1",
		SubjectID: "math",
		EventType: planner.EventSessionCompleted,
		Data: map[string]any{
			"accuracy": 0.8,
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != planner.EventSessionCompleted {
		t.Errorf("EventType = %q, want %s", events[0].EventType, planner.EventSessionCompleted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	if err := planner.NewMemoryEventLogger().LogEvent(t.Context(), planner.Event{PlanID: "p"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := planner.NewPostgresEventLogger(nil)

	err := logger.LogEvent(t.Context(), planner.Event{
		PlanID:    "plan-1",
		EventType: planner.EventPlanCreated,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
