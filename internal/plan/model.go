package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/pai-planner/internal/catalog"
)

// ErrInvalidPerformance means a performance report breaks its invariants.
var ErrInvalidPerformance = errors.New("invalid session performance")

// Difficulty is the level an exercise or session was run at.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var difficultyOrder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// IsValid reports whether d is a known difficulty tag.
func (d Difficulty) IsValid() bool {
	return d.rank() >= 0
}

func (d Difficulty) rank() int {
	for i, v := range difficultyOrder {
		if v == d {
			return i
		}
	}
	return -1
}

// Shift moves d by delta levels, clamped to easy..hard.
func (d Difficulty) Shift(delta int) Difficulty {
	r := d.rank()
	if r < 0 {
		return d
	}
	r += delta
	if r < 0 {
		r = 0
	}
	if r >= len(difficultyOrder) {
		r = len(difficultyOrder) - 1
	}
	return difficultyOrder[r]
}

// Label returns the display text.
func (d Difficulty) Label() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	default:
		return "Unknown"
	}
}

// ExerciseType is the answer format of an exercise.
type ExerciseType string

const (
	ExerciseMultipleChoice ExerciseType = "multiple_choice"
	ExerciseFreeText       ExerciseType = "free_text"
	ExerciseMatching       ExerciseType = "matching"
	ExerciseCalculation    ExerciseType = "calculation"
)

// Label returns the display text.
func (t ExerciseType) Label() string {
	switch t {
	case ExerciseMultipleChoice:
		return "Multiple choice"
	case ExerciseFreeText:
		return "Free text"
	case ExerciseMatching:
		return "Matching"
	case ExerciseCalculation:
		return "Calculation"
	default:
		return "Unknown"
	}
}

// Exercise is a practice task owned by a session.
type Exercise struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Difficulty  Difficulty   `json:"difficulty"`
	TopicID     string       `json:"topic_id"`
	Type        ExerciseType `json:"type"`
}

// SessionPerformance is the measured outcome of a completed session.
type SessionPerformance struct {
	CorrectAnswers int           `json:"correct_answers"`
	TotalQuestions int           `json:"total_questions"`
	TimeSpent      time.Duration `json:"-"`
	Difficulty     Difficulty    `json:"difficulty"`
	Feedback       string        `json:"feedback,omitempty"`
}

// Validate checks 0 <= correct <= total and a known difficulty.
func (p SessionPerformance) Validate() error {
	switch {
	case p.CorrectAnswers < 0:
		return fmt.Errorf("%w: correct answers must be non-negative, got %d", ErrInvalidPerformance, p.CorrectAnswers)
	case p.TotalQuestions < p.CorrectAnswers:
		return fmt.Errorf("%w: total questions %d below correct answers %d", ErrInvalidPerformance, p.TotalQuestions, p.CorrectAnswers)
	case p.TimeSpent < 0:
		return fmt.Errorf("%w: time spent must be non-negative", ErrInvalidPerformance)
	case p.Difficulty != "" && !p.Difficulty.IsValid():
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidPerformance, p.Difficulty)
	}
	return nil
}

// Accuracy returns correct/total, or 0 when no questions were asked.
func (p SessionPerformance) Accuracy() float64 {
	if p.TotalQuestions == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(p.TotalQuestions)
}

func (p SessionPerformance) MarshalJSON() ([]byte, error) {
	type alias SessionPerformance
	return json.Marshal(struct {
		alias
		TimeSpent int64 `json:"time_spent_seconds"`
	}{alias: alias(p), TimeSpent: int64(p.TimeSpent / time.Second)})
}

func (p *SessionPerformance) UnmarshalJSON(data []byte) error {
	type alias SessionPerformance
	aux := struct {
		*alias
		TimeSpent int64 `json:"time_spent_seconds"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.TimeSpent = time.Duration(aux.TimeSpent) * time.Second
	return nil
}

// LearningSession is one scheduled study block of a plan.
type LearningSession struct {
	ID          string              `json:"id"`
	Date        time.Time           `json:"date"`
	Duration    time.Duration       `json:"-"`
	Topics      []catalog.Topic     `json:"topics"`
	Exercises   []Exercise          `json:"exercises"`
	IsCompleted bool                `json:"is_completed"`
	Performance *SessionPerformance `json:"performance,omitempty"`
}

func (s LearningSession) MarshalJSON() ([]byte, error) {
	type alias LearningSession
	return json.Marshal(struct {
		alias
		Duration int64 `json:"duration_seconds"`
	}{alias: alias(s), Duration: int64(s.Duration / time.Second)})
}

func (s *LearningSession) UnmarshalJSON(data []byte) error {
	type alias LearningSession
	aux := struct {
		*alias
		Duration int64 `json:"duration_seconds"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Duration = time.Duration(aux.Duration) * time.Second
	return nil
}

// Clone returns a deep copy of s.
func (s LearningSession) Clone() LearningSession {
	out := s
	out.Topics = append([]catalog.Topic(nil), s.Topics...)
	out.Exercises = append([]Exercise(nil), s.Exercises...)
	if s.Performance != nil {
		perf := *s.Performance
		out.Performance = &perf
	}
	return out
}

// AdaptationReason classifies why a plan was adapted.
type AdaptationReason string

const (
	ReasonPerformanceChange AdaptationReason = "performance_change"
	ReasonTimeConstraint    AdaptationReason = "time_constraint"
	ReasonTopicDifficulty   AdaptationReason = "topic_difficulty"
	ReasonUserFeedback      AdaptationReason = "user_feedback"
	ReasonLearningBehavior  AdaptationReason = "learning_behavior"
)

// Label returns the display text.
func (r AdaptationReason) Label() string {
	switch r {
	case ReasonPerformanceChange:
		return "Performance change"
	case ReasonTimeConstraint:
		return "Time constraint"
	case ReasonTopicDifficulty:
		return "Topic difficulty"
	case ReasonUserFeedback:
		return "User feedback"
	case ReasonLearningBehavior:
		return "Learning behavior"
	default:
		return "Unknown"
	}
}

// Adaptation is an append-only audit record of a change applied to a plan.
type Adaptation struct {
	ID          string           `json:"id"`
	Date        time.Time        `json:"date"`
	Reason      AdaptationReason `json:"reason"`
	Description string           `json:"description"`
}

// LearningPlan is a generated, date-bounded study schedule for one subject.
// Values are never mutated after construction; changes produce a new plan
// with the same ID.
type LearningPlan struct {
	ID                string            `json:"id"`
	Subject           catalog.Subject   `json:"subject"`
	Exam              *catalog.Exam     `json:"exam,omitempty"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	Sessions          []LearningSession `json:"sessions"`
	AdaptationHistory []Adaptation      `json:"adaptation_history"`
}

// Clone returns a deep copy of p that shares no slices with it.
func (p LearningPlan) Clone() LearningPlan {
	out := p
	out.Subject.Topics = append([]catalog.Topic(nil), p.Subject.Topics...)
	if p.Exam != nil {
		exam := *p.Exam
		exam.Topics = append([]catalog.Topic(nil), p.Exam.Topics...)
		exam.ReminderOffsets = append([]time.Duration(nil), p.Exam.ReminderOffsets...)
		out.Exam = &exam
	}
	out.Sessions = make([]LearningSession, len(p.Sessions))
	for i, s := range p.Sessions {
		out.Sessions[i] = s.Clone()
	}
	out.AdaptationHistory = append(make([]Adaptation, 0, len(p.AdaptationHistory)+1), p.AdaptationHistory...)
	return out
}

// Session returns the session with the given id.
func (p LearningPlan) Session(id string) (LearningSession, bool) {
	for _, s := range p.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return LearningSession{}, false
}

// ReplaceSession returns a copy of sessions with the entry whose ID matches
// s.ID replaced by s. The second result is false when no entry matched.
func ReplaceSession(sessions []LearningSession, s LearningSession) ([]LearningSession, bool) {
	out := make([]LearningSession, len(sessions))
	copy(out, sessions)
	for i := range out {
		if out[i].ID == s.ID {
			out[i] = s
			return out, true
		}
	}
	return out, false
}
