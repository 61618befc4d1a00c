package plan

import (
	"context"
	"fmt"
	"time"
)

// MinimalDescription is recorded by policies that leave sessions unchanged.
const MinimalDescription = "Plan reviewed after session performance; no changes applied."

// RevisedDescription is recorded when a policy rewrites sessions without
// describing the change.
const RevisedDescription = "Plan sessions revised after session performance."

// Revision is a policy's decision. Nil Sessions keeps the plan's sessions.
type Revision struct {
	Sessions    []LearningSession
	Description string
}

// Policy decides how a plan changes after a performance report. Revise
// receives a private copy of the plan and must not retain it.
type Policy interface {
	Revise(ctx context.Context, p LearningPlan, perf SessionPerformance, now time.Time) (Revision, error)
}

// MinimalPolicy records the adaptation without rewriting sessions.
type MinimalPolicy struct{}

func (MinimalPolicy) Revise(_ context.Context, _ LearningPlan, _ SessionPerformance, _ time.Time) (Revision, error) {
	return Revision{Description: MinimalDescription}, nil
}

const (
	defaultLowerBelow     = 0.5
	defaultRaiseAtOrAbove = 0.85
)

// DifficultyPolicy shifts exercise difficulty of upcoming sessions by one
// level based on the reported accuracy.
type DifficultyPolicy struct {
	LowerBelow     float64 // accuracy below which difficulty drops (default 0.5)
	RaiseAtOrAbove float64 // accuracy at or above which difficulty rises (default 0.85)
}

func (d DifficultyPolicy) Revise(_ context.Context, p LearningPlan, perf SessionPerformance, now time.Time) (Revision, error) {
	lower, raise := d.LowerBelow, d.RaiseAtOrAbove
	if lower == 0 {
		lower = defaultLowerBelow
	}
	if raise == 0 {
		raise = defaultRaiseAtOrAbove
	}

	if perf.TotalQuestions == 0 {
		return Revision{Description: "No questions answered; difficulty kept."}, nil
	}

	acc := perf.Accuracy()
	switch {
	case acc < lower:
		return ShiftRevision(p, -1, acc, now), nil
	case acc >= raise:
		return ShiftRevision(p, 1, acc, now), nil
	default:
		return Revision{Description: fmt.Sprintf("Accuracy %.0f%%: difficulty kept.", acc*100)}, nil
	}
}

// ShiftRevision builds a revision moving the difficulty of upcoming sessions by delta.
func ShiftRevision(p LearningPlan, delta int, accuracy float64, now time.Time) Revision {
	sessions, changed := ShiftDifficulty(p.Sessions, delta, now)
	verb := "kept"
	switch {
	case delta < 0 && changed > 0:
		verb = "lowered"
	case delta > 0 && changed > 0:
		verb = "raised"
	}
	return Revision{
		Sessions:    sessions,
		Description: fmt.Sprintf("Accuracy %.0f%%: exercise difficulty %s for %d upcoming sessions.", accuracy*100, verb, changed),
	}
}

// ShiftDifficulty returns a copy of sessions where every exercise of an
// uncompleted session dated after now moves delta difficulty levels. The
// second result counts sessions whose exercises actually changed.
func ShiftDifficulty(sessions []LearningSession, delta int, now time.Time) ([]LearningSession, int) {
	out := make([]LearningSession, len(sessions))
	changed := 0
	for i, s := range sessions {
		s = s.Clone()
		if !s.IsCompleted && s.Date.After(now) {
			touched := false
			for j, ex := range s.Exercises {
				next := ex.Difficulty.Shift(delta)
				if next != ex.Difficulty {
					s.Exercises[j].Difficulty = next
					touched = true
				}
			}
			if touched {
				changed++
			}
		}
		out[i] = s
	}
	return out, changed
}
