package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-planner/internal/calendar"
	"github.com/p-n-ai/pai-planner/internal/catalog"
)

const (
	afternoonHour = 16
	eveningHour   = 18

	shortSession = 30 * time.Minute
	longSession  = 45 * time.Minute

	topicsPerSession = 2

	// GeneralTopicName names the placeholder topic used for subjects without topics.
	GeneralTopicName = "General"
)

// Schedule places a session on every other calendar day in [start, end).
// Day offsets divisible by four get a short afternoon session, the remaining
// even offsets a longer evening one. A non-positive span yields no sessions.
func Schedule(subject catalog.Subject, start, end time.Time) []LearningSession {
	n := calendar.DaysBetween(start, end)
	sessions := make([]LearningSession, 0, max(n+1, 0)/2)

	for day := 0; day < n; day++ {
		if day%2 != 0 {
			continue
		}

		hour, duration := eveningHour, longSession
		if day%4 == 0 {
			hour, duration = afternoonHour, shortSession
		}

		topics := sessionTopics(subject)
		sessions = append(sessions, LearningSession{
			ID:        uuid.NewString(),
			Date:      calendar.SetTime(calendar.AddDays(start, day), hour, 0),
			Duration:  duration,
			Topics:    topics,
			Exercises: starterExercises(topics[0]),
		})
	}
	return sessions
}

// sessionTopics returns the first topics of the subject, or a synthetic
// topic that exists only inside the generated session.
func sessionTopics(subject catalog.Subject) []catalog.Topic {
	if len(subject.Topics) == 0 {
		return []catalog.Topic{{
			ID:        uuid.NewString(),
			Name:      GeneralTopicName,
			SubjectID: subject.ID,
		}}
	}
	n := min(len(subject.Topics), topicsPerSession)
	return append([]catalog.Topic(nil), subject.Topics[:n]...)
}

func starterExercises(topic catalog.Topic) []Exercise {
	return []Exercise{
		{
			ID:          uuid.NewString(),
			Title:       "Exercise 1",
			Description: "Introductory practice exercise",
			Difficulty:  DifficultyEasy,
			TopicID:     topic.ID,
			Type:        ExerciseMultipleChoice,
		},
		{
			ID:          uuid.NewString(),
			Title:       "Exercise 2",
			Description: "Intermediate practice exercise",
			Difficulty:  DifficultyMedium,
			TopicID:     topic.ID,
			Type:        ExerciseFreeText,
		},
	}
}
