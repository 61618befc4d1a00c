package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/p-n-ai/pai-planner/internal/calendar"
)

// TimeFrame selects a window of upcoming exams.
type TimeFrame string

const (
	FrameToday TimeFrame = "today"
	FrameWeek  TimeFrame = "week"
	FrameMonth TimeFrame = "month"
	FrameAll   TimeFrame = "all"
)

// ParseTimeFrame parses a frame tag. An empty string means FrameAll.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch TimeFrame(s) {
	case "", FrameAll:
		return FrameAll, nil
	case FrameToday, FrameWeek, FrameMonth:
		return TimeFrame(s), nil
	}
	return "", fmt.Errorf("unknown time frame %q", s)
}

// FilterExams returns the exams after now that fall inside frame, ordered by date.
func FilterExams(exams []Exam, frame TimeFrame, now time.Time) []Exam {
	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		if !e.Date.After(now) {
			continue
		}
		switch frame {
		case FrameToday:
			if !calendar.IsToday(e.Date, now) {
				continue
			}
		case FrameWeek:
			if e.Date.After(calendar.AddDays(now, 7)) {
				continue
			}
		case FrameMonth:
			if e.Date.After(calendar.AddMonths(now, 1)) {
				continue
			}
		}
		out = append(out, e)
	}
	sortExams(out)
	return out
}

// ExamsForSubject keeps only the exams linked to subjectID.
// An empty subjectID returns exams unchanged.
func ExamsForSubject(exams []Exam, subjectID string) []Exam {
	if subjectID == "" {
		return exams
	}
	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out
}

func sortExams(exams []Exam) {
	sort.SliceStable(exams, func(i, j int) bool {
		if !exams[i].Date.Equal(exams[j].Date) {
			return exams[i].Date.Before(exams[j].Date)
		}
		return exams[i].ID < exams[j].ID
	})
}
