// Package planner coordinates the plan engine with the catalog, the exam
// registry and plan storage.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
)

var (
	// ErrPlanNotFound means no plan is stored under the requested id.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrStalePlan means the caller acted on an outdated plan value.
	ErrStalePlan = errors.New("plan has changed since it was read")
	// ErrSubjectInactive means plans cannot be created for the subject.
	ErrSubjectInactive = errors.New("subject is inactive")
)

// Catalog supplies subjects and their topics.
type Catalog interface {
	FetchSubjects(ctx context.Context) ([]catalog.Subject, error)
	FetchTopics(ctx context.Context, subjectID string) ([]catalog.Topic, error)
}

// ExamRegistry supplies exams.
type ExamRegistry interface {
	FetchExam(ctx context.Context, id string) (catalog.Exam, error)
	FetchExams(ctx context.Context) ([]catalog.Exam, error)
}

// Repository persists plans. Load returns the current plan of a subject, or
// nil when the subject has none. Failures are reported as *StorageError.
type Repository interface {
	Save(ctx context.Context, p plan.LearningPlan) error
	Load(ctx context.Context, subjectID string) (*plan.LearningPlan, error)
	Get(ctx context.Context, planID string) (*plan.LearningPlan, error)
}

// StorageError is an opaque repository failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
