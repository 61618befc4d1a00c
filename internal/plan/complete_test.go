package plan_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

func TestCompleteSession(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := plan.LearningPlan{ID: "p1", Sessions: plan.Schedule(mathSubject(), start, start.AddDate(0, 0, 8))}
	target := p.Sessions[1].ID
	perf := plan.SessionPerformance{CorrectAnswers: 7, TotalQuestions: 10, TimeSpent: 20 * time.Minute, Difficulty: plan.DifficultyMedium}

	got, err := plan.CompleteSession(p, target, perf)
	if err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}

	s, ok := got.Session(target)
	if !ok {
		t.Fatal("completed session missing")
	}
	if !s.IsCompleted || s.Performance == nil || *s.Performance != perf {
		t.Errorf("session = %+v", s)
	}
	if p.Sessions[1].IsCompleted || p.Sessions[1].Performance != nil {
		t.Error("original plan was mutated")
	}
	if got.ID != p.ID || len(got.Sessions) != len(p.Sessions) {
		t.Errorf("plan identity or size changed")
	}

	v := plan.DeriveViews(got, start.Add(-time.Hour))
	if v.Progress != 0.25 {
		t.Errorf("Progress = %v, want 0.25", v.Progress)
	}
}

func TestCompleteSession_Errors(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := plan.LearningPlan{ID: "p1", Sessions: plan.Schedule(mathSubject(), start, start.AddDate(0, 0, 4))}
	done, err := plan.CompleteSession(p, p.Sessions[0].ID, plan.SessionPerformance{TotalQuestions: 3})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		plan    plan.LearningPlan
		id      string
		perf    plan.SessionPerformance
		wantErr error
	}{
		{"unknown session", p, "nope", plan.SessionPerformance{}, plan.ErrSessionNotFound},
		{"already completed", done, p.Sessions[0].ID, plan.SessionPerformance{}, plan.ErrSessionCompleted},
		{"correct above total", p, p.Sessions[0].ID, plan.SessionPerformance{CorrectAnswers: 4, TotalQuestions: 3}, plan.ErrInvalidPerformance},
		{"unknown difficulty", p, p.Sessions[0].ID, plan.SessionPerformance{Difficulty: "extreme"}, plan.ErrInvalidPerformance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.CompleteSession(tt.plan, tt.id, tt.perf)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompleteSession() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
