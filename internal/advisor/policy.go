package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

// ErrNoRecommendation means the provider's answer named no known action.
var ErrNoRecommendation = errors.New("advisor gave no recommendation")

// Recommendation is the action the advisor proposes for upcoming sessions.
type Recommendation string

const (
	RecommendRaise Recommendation = "raise"
	RecommendLower Recommendation = "lower"
	RecommendKeep  Recommendation = "keep"
)

const systemPrompt = `You adjust study plans. Given a learner's latest session result, answer with exactly one word:
raise - upcoming exercises should be harder
lower - upcoming exercises should be easier
keep - difficulty is right`

// ParseRecommendation returns the first known action word in s.
func ParseRecommendation(s string) (Recommendation, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, f := range fields {
		switch Recommendation(f) {
		case RecommendRaise, RecommendLower, RecommendKeep:
			return Recommendation(f), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoRecommendation, s)
}

// Policy is a plan.Policy that lets a Provider pick the difficulty change.
// Provider errors are returned unchanged and the plan is not adapted.
type Policy struct {
	provider Provider
	model    string
}

// NewPolicy creates an advisor-backed adaptation policy. An empty model uses
// the provider's default.
func NewPolicy(provider Provider, model string) *Policy {
	return &Policy{provider: provider, model: model}
}

// Recommend asks the provider what to do after perf.
func (p *Policy) Recommend(ctx context.Context, lp plan.LearningPlan, perf plan.SessionPerformance, now time.Time) (Recommendation, error) {
	views := plan.DeriveViews(lp, now)

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", lp.Subject.Name)
	fmt.Fprintf(&b, "Correct answers: %d of %d (%.0f%%)\n", perf.CorrectAnswers, perf.TotalQuestions, perf.Accuracy()*100)
	if perf.Difficulty != "" {
		fmt.Fprintf(&b, "Session difficulty: %s\n", perf.Difficulty.Label())
	}
	if perf.TimeSpent > 0 {
		fmt.Fprintf(&b, "Time spent: %s\n", perf.TimeSpent.Round(time.Minute))
	}
	if perf.Feedback != "" {
		fmt.Fprintf(&b, "Learner feedback: %s\n", perf.Feedback)
	}
	fmt.Fprintf(&b, "Upcoming sessions: %d, progress %.0f%%\n", len(views.Upcoming), views.Progress*100)
	if lp.Exam != nil {
		fmt.Fprintf(&b, "Exam %q on %s\n", lp.Exam.Title, lp.Exam.Date.Format(time.DateOnly))
	}

	resp, err := p.provider.Complete(ctx, CompletionRequest{
		Model:     p.model,
		MaxTokens: 5,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}
	return ParseRecommendation(resp.Content)
}

func (p *Policy) Revise(ctx context.Context, lp plan.LearningPlan, perf plan.SessionPerformance, now time.Time) (plan.Revision, error) {
	rec, err := p.Recommend(ctx, lp, perf, now)
	if err != nil {
		return plan.Revision{}, err
	}

	acc := perf.Accuracy()
	switch rec {
	case RecommendRaise:
		return plan.ShiftRevision(lp, 1, acc, now), nil
	case RecommendLower:
		return plan.ShiftRevision(lp, -1, acc, now), nil
	default:
		return plan.Revision{Description: fmt.Sprintf("Accuracy %.0f%%: advisor kept difficulty.", acc*100)}, nil
	}
}
