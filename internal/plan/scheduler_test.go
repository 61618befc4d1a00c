package plan_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
)

func mathSubject() catalog.Subject {
	return catalog.Subject{
		ID:     "math",
		Name:   "Mathematics",
		Active: true,
		Topics: []catalog.Topic{
			{ID: "algebra", Name: "Algebra", SubjectID: "math"},
			{ID: "geometry", Name: "Geometry", SubjectID: "math"},
			{ID: "calculus", Name: "Calculus", SubjectID: "math"},
		},
	}
}

func TestSchedule_SevenDaySpan(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	sessions := plan.Schedule(mathSubject(), start, end)
	if len(sessions) != 4 {
		t.Fatalf("Schedule() len = %d, want 4", len(sessions))
	}

	want := []struct {
		day      int
		hour     int
		duration time.Duration
	}{
		{0, 16, 30 * time.Minute},
		{2, 18, 45 * time.Minute},
		{4, 16, 30 * time.Minute},
		{6, 18, 45 * time.Minute},
	}
	for i, w := range want {
		s := sessions[i]
		wantDate := time.Date(2024, 1, 1+w.day, w.hour, 0, 0, 0, time.UTC)
		if !s.Date.Equal(wantDate) {
			t.Errorf("session %d date = %v, want %v", i, s.Date, wantDate)
		}
		if s.Duration != w.duration {
			t.Errorf("session %d duration = %v, want %v", i, s.Duration, w.duration)
		}
		if s.IsCompleted || s.Performance != nil {
			t.Errorf("session %d should start uncompleted without performance", i)
		}
	}
}

func TestSchedule_DayCountProperty(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	for n := 0; n <= 30; n++ {
		end := start.AddDate(0, 0, n)
		sessions := plan.Schedule(mathSubject(), start, end)

		if want := (n + 1) / 2; len(sessions) != want {
			t.Errorf("n=%d: len = %d, want %d", n, len(sessions), want)
		}
		for i, s := range sessions {
			day := i * 2
			wantHour, wantDur := 18, 45*time.Minute
			if day%4 == 0 {
				wantHour, wantDur = 16, 30*time.Minute
			}
			if s.Date.Hour() != wantHour || s.Date.Minute() != 0 || s.Date.Second() != 0 {
				t.Errorf("n=%d session %d at %v, want %02d:00:00", n, i, s.Date, wantHour)
			}
			if s.Duration != wantDur {
				t.Errorf("n=%d session %d duration = %v, want %v", n, i, s.Duration, wantDur)
			}
			if got := s.Date.Day(); got != start.AddDate(0, 0, day).Day() {
				t.Errorf("n=%d session %d on day %d, want offset %d", n, i, got, day)
			}
		}
	}
}

func TestSchedule_NonPositiveSpan(t *testing.T) {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
	}{
		{"same day", start.Add(3 * time.Hour)},
		{"end before start", start.AddDate(0, 0, -5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := plan.Schedule(mathSubject(), start, tt.end)
			if sessions == nil {
				t.Fatal("Schedule() returned nil, want empty slice")
			}
			if len(sessions) != 0 {
				t.Errorf("Schedule() len = %d, want 0", len(sessions))
			}
		})
	}
}

func TestSchedule_TopicsAndExercises(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := plan.Schedule(mathSubject(), start, start.AddDate(0, 0, 3))

	for _, s := range sessions {
		if len(s.Topics) != 2 || s.Topics[0].ID != "algebra" || s.Topics[1].ID != "geometry" {
			t.Errorf("session topics = %+v, want algebra and geometry", s.Topics)
		}
		if len(s.Exercises) != 2 {
			t.Fatalf("exercises len = %d, want 2", len(s.Exercises))
		}
		first, second := s.Exercises[0], s.Exercises[1]
		if first.Difficulty != plan.DifficultyEasy || first.Type != plan.ExerciseMultipleChoice {
			t.Errorf("first exercise = %s/%s", first.Difficulty, first.Type)
		}
		if second.Difficulty != plan.DifficultyMedium || second.Type != plan.ExerciseFreeText {
			t.Errorf("second exercise = %s/%s", second.Difficulty, second.Type)
		}
		for _, ex := range s.Exercises {
			if ex.TopicID != "algebra" {
				t.Errorf("exercise topic = %s, want algebra", ex.TopicID)
			}
		}
	}
}

func TestSchedule_SubjectWithoutTopics(t *testing.T) {
	subject := catalog.Subject{ID: "art", Name: "Art"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sessions := plan.Schedule(subject, start, start.AddDate(0, 0, 6))
	if len(sessions) != 3 {
		t.Fatalf("Schedule() len = %d, want 3", len(sessions))
	}
	for _, s := range sessions {
		if len(s.Topics) != 1 {
			t.Fatalf("topics len = %d, want 1", len(s.Topics))
		}
		topic := s.Topics[0]
		if topic.Name != plan.GeneralTopicName || topic.SubjectID != "art" {
			t.Errorf("fallback topic = %+v", topic)
		}
		if s.Exercises[0].TopicID != topic.ID {
			t.Errorf("exercise topic = %s, want %s", s.Exercises[0].TopicID, topic.ID)
		}
	}
	if len(subject.Topics) != 0 {
		t.Errorf("subject topics = %v, want none", subject.Topics)
	}
}

func TestSchedule_UniqueIDs(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := plan.Schedule(mathSubject(), start, start.AddDate(0, 0, 10))

	seen := make(map[string]bool)
	for _, s := range sessions {
		if seen[s.ID] {
			t.Errorf("duplicate session id %s", s.ID)
		}
		seen[s.ID] = true
		for _, ex := range s.Exercises {
			if seen[ex.ID] {
				t.Errorf("duplicate exercise id %s", ex.ID)
			}
			seen[ex.ID] = true
		}
	}
}
