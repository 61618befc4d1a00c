package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

type createPlanRequest struct {
	SubjectID string     `json:"subject_id" validate:"required,max=128"`
	ExamID    string     `json:"exam_id" validate:"max=128"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (r createPlanRequest) toService() planner.CreatePlanRequest {
	req := planner.CreatePlanRequest{SubjectID: r.SubjectID, ExamID: r.ExamID}
	if r.StartDate != nil {
		req.Start = *r.StartDate
	}
	if r.EndDate != nil {
		req.End = *r.EndDate
	}
	return req
}

type performanceRequest struct {
	CorrectAnswers   int    `json:"correct_answers" validate:"gte=0"`
	TotalQuestions   int    `json:"total_questions" validate:"gtefield=CorrectAnswers"`
	TimeSpentSeconds int64  `json:"time_spent_seconds" validate:"gte=0"`
	Difficulty       string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Feedback         string `json:"feedback" validate:"max=2000"`
}

func (r performanceRequest) toPerformance() plan.SessionPerformance {
	return plan.SessionPerformance{
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		TimeSpent:      time.Duration(r.TimeSpentSeconds) * time.Second,
		Difficulty:     plan.Difficulty(r.Difficulty),
		Feedback:       r.Feedback,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationErrors maps each failed field to a readable message keyed
// by its JSON name.
func formatValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = field + " is required"
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "gtefield":
			out[field] = fmt.Sprintf("%s must not be below %s", field, jsonName(fe.Param()))
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			out[field] = field + " is invalid"
		}
	}
	return out
}

// jsonName converts a field name such as CorrectAnswers to correct_answers.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
