package plan

import (
	"slices"
	"time"
)

// Views is the progress snapshot of a plan at a point in time.
type Views struct {
	Upcoming  []LearningSession `json:"upcoming"`
	Completed []LearningSession `json:"completed"`
	Progress  float64           `json:"progress"`
}

// DeriveViews splits p's sessions into upcoming and completed buckets.
//
// A session dated before now counts as completed for the view even when it
// was never marked complete, so missed sessions never linger in Upcoming.
// Progress only counts sessions explicitly marked complete.
func DeriveViews(p LearningPlan, now time.Time) Views {
	v := Views{
		Upcoming:  []LearningSession{},
		Completed: []LearningSession{},
	}
	done := 0
	for _, s := range p.Sessions {
		if s.IsCompleted {
			done++
		}
		if !s.IsCompleted && s.Date.After(now) {
			v.Upcoming = append(v.Upcoming, s.Clone())
		}
		if s.IsCompleted || s.Date.Before(now) {
			v.Completed = append(v.Completed, s.Clone())
		}
	}

	slices.SortStableFunc(v.Upcoming, func(a, b LearningSession) int {
		return a.Date.Compare(b.Date)
	})
	slices.SortStableFunc(v.Completed, func(a, b LearningSession) int {
		return b.Date.Compare(a.Date)
	})

	if len(p.Sessions) > 0 {
		v.Progress = float64(done) / float64(len(p.Sessions))
	}
	return v
}
