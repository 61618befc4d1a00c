package plan

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound means the plan has no session with the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCompleted means the session already carries a performance record.
	ErrSessionCompleted = errors.New("session already completed")
)

// CompleteSession returns a copy of p with the session marked completed and
// carrying perf. p is left untouched.
func CompleteSession(p LearningPlan, sessionID string, perf SessionPerformance) (LearningPlan, error) {
	if err := perf.Validate(); err != nil {
		return LearningPlan{}, err
	}
	s, ok := p.Session(sessionID)
	if !ok {
		return LearningPlan{}, fmt.Errorf("complete session %s: %w", sessionID, ErrSessionNotFound)
	}
	if s.IsCompleted {
		return LearningPlan{}, fmt.Errorf("complete session %s: %w", sessionID, ErrSessionCompleted)
	}

	s = s.Clone()
	s.IsCompleted = true
	s.Performance = &perf

	next := p.Clone()
	next.Sessions, _ = ReplaceSession(next.Sessions, s)
	return next, nil
}
