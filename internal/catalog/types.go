package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic is a node of a subject's topic tree. Parent and child links are ids
// resolved through the owning Subject, never pointers.
type Topic struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SubjectID   string   `json:"subject_id"`
	ParentID    string   `json:"parent_id,omitempty"`
	SubtopicIDs []string `json:"subtopic_ids,omitempty"`
}

// Subject is a catalog entry a learning plan can target.
type Subject struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color"`
	Symbol        string  `json:"symbol"`
	Active        bool    `json:"active"`
	Topics        []Topic `json:"topics"`
	CurriculumRef string  `json:"curriculum_ref,omitempty"`
}

// TopicIndex returns the subject's topics keyed by id.
func (s Subject) TopicIndex() map[string]Topic {
	idx := make(map[string]Topic, len(s.Topics))
	for _, t := range s.Topics {
		idx[t.ID] = t
	}
	return idx
}

// Subtopics returns the direct children of topicID in declaration order.
func (s Subject) Subtopics(topicID string) []Topic {
	var out []Topic
	for _, t := range s.Topics {
		if t.ParentID == topicID && t.ParentID != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks topic ids are unique, every parent exists in this subject
// and the parent links form no cycle.
func (s Subject) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("subject id is required")
	}
	idx := make(map[string]Topic, len(s.Topics))
	for _, t := range s.Topics {
		if t.ID == "" {
			return fmt.Errorf("subject %s: topic id is required", s.ID)
		}
		if _, dup := idx[t.ID]; dup {
			return fmt.Errorf("subject %s: duplicate topic %s", s.ID, t.ID)
		}
		if t.SubjectID != "" && t.SubjectID != s.ID {
			return fmt.Errorf("subject %s: topic %s belongs to subject %s", s.ID, t.ID, t.SubjectID)
		}
		idx[t.ID] = t
	}
	for _, t := range s.Topics {
		if t.ParentID == "" {
			continue
		}
		if _, ok := idx[t.ParentID]; !ok {
			return fmt.Errorf("subject %s: topic %s references unknown parent %s", s.ID, t.ID, t.ParentID)
		}
		seen := map[string]bool{t.ID: true}
		for cur := t.ParentID; cur != ""; cur = idx[cur].ParentID {
			if seen[cur] {
				return fmt.Errorf("subject %s: topic %s is part of a parent cycle", s.ID, t.ID)
			}
			seen[cur] = true
		}
	}
	return nil
}

// Importance ranks how much an exam matters.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// IsValid reports whether i is a known importance tag.
func (i Importance) IsValid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// Label returns the display text.
func (i Importance) Label() string {
	switch i {
	case ImportanceLow:
		return "Low"
	case ImportanceMedium:
		return "Medium"
	case ImportanceHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// PreparationStatus tracks how ready the learner feels for an exam.
type PreparationStatus string

const (
	StatusNotStarted PreparationStatus = "not_started"
	StatusInProgress PreparationStatus = "in_progress"
	StatusAlmostDone PreparationStatus = "almost_done"
	StatusReady      PreparationStatus = "ready"
)

// IsValid reports whether s is a known status tag.
func (s PreparationStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusAlmostDone, StatusReady:
		return true
	}
	return false
}

// Label returns the display text.
func (s PreparationStatus) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not started"
	case StatusInProgress:
		return "In progress"
	case StatusAlmostDone:
		return "Almost done"
	case StatusReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Exam is a dated assessment a plan may prepare for.
type Exam struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Date              time.Time         `json:"date"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	Location          string            `json:"location,omitempty"`
	Importance        Importance        `json:"importance"`
	PreparationStatus PreparationStatus `json:"preparation_status"`
	SubjectID         string            `json:"subject_id,omitempty"`
	Topics            []Topic           `json:"topics,omitempty"`
	Description       string            `json:"description,omitempty"`
	// ReminderOffsets are durations before Date; serialized as second counts.
	ReminderOffsets []time.Duration `json:"-"`
}

// ReminderTimes returns the instants at which reminders are due.
func (e Exam) ReminderTimes() []time.Time {
	times := make([]time.Time, 0, len(e.ReminderOffsets))
	for _, off := range e.ReminderOffsets {
		times = append(times, e.Date.Add(-off))
	}
	return times
}

func (e Exam) MarshalJSON() ([]byte, error) {
	type alias Exam
	secs := make([]int64, len(e.ReminderOffsets))
	for i, d := range e.ReminderOffsets {
		secs[i] = int64(d / time.Second)
	}
	return json.Marshal(struct {
		alias
		ReminderOffsets []int64 `json:"reminder_offsets_seconds"`
	}{alias: alias(e), ReminderOffsets: secs})
}

func (e *Exam) UnmarshalJSON(data []byte) error {
	type alias Exam
	aux := struct {
		*alias
		ReminderOffsets []int64 `json:"reminder_offsets_seconds"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ReminderOffsets = nil
	for _, s := range aux.ReminderOffsets {
		e.ReminderOffsets = append(e.ReminderOffsets, time.Duration(s)*time.Second)
	}
	return nil
}
