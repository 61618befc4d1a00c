package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
)

// ErrExamMismatch means the requested exam belongs to a different subject.
var ErrExamMismatch = errors.New("exam belongs to another subject")

// ChangeNotifier is told about every plan the Service stores.
type ChangeNotifier interface {
	PlanChanged(p plan.LearningPlan)
}

// ServiceConfig holds dependencies for the planner service.
type ServiceConfig struct {
	Engine     *plan.Engine
	Catalog    Catalog
	Exams      ExamRegistry
	Repository Repository
	Events     EventLogger      // optional (default NopEventLogger)
	Notifier   ChangeNotifier   // optional
	Now        func() time.Time // optional (default time.Now)
}

// CreatePlanRequest selects the subject, optional exam and range of a new plan.
// A zero Start means now; a zero End is resolved by the engine.
type CreatePlanRequest struct {
	SubjectID string
	ExamID    string
	Start     time.Time
	End       time.Time
}

// Service fetches inputs, runs the engine and persists the result. It
// serializes changes to the same plan so concurrent adaptations never
// overwrite each other.
type Service struct {
	engine   *plan.Engine
	catalog  Catalog
	exams    ExamRegistry
	repo     Repository
	events   EventLogger
	notifier ChangeNotifier
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*planLock
}

// planLock serializes updates to one plan. refs counts holders and waiters
// so the entry can be dropped once nobody needs it.
type planLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a new planner service.
func NewService(cfg ServiceConfig) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = plan.NewEngine(plan.EngineConfig{})
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		engine:   engine,
		catalog:  cfg.Catalog,
		exams:    cfg.Exams,
		repo:     cfg.Repository,
		events:   events,
		notifier: cfg.Notifier,
		now:      now,
		locks:    make(map[string]*planLock),
	}
}

// SetNotifier replaces the change notifier.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// lockPlan blocks until the caller holds the plan's lock and returns the
// matching unlock.
func (s *Service) lockPlan(id string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &planLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Subjects returns all catalog subjects.
func (s *Service) Subjects(ctx context.Context) ([]catalog.Subject, error) {
	return s.catalog.FetchSubjects(ctx)
}

// Exams returns future exams inside frame, optionally restricted to one subject.
func (s *Service) Exams(ctx context.Context, frame catalog.TimeFrame, subjectID string) ([]catalog.Exam, error) {
	exams, err := s.exams.FetchExams(ctx)
	if err != nil {
		return nil, err
	}
	if subjectID != "" {
		exams = catalog.ExamsForSubject(exams, subjectID)
	}
	return catalog.FilterExams(exams, frame, s.now()), nil
}

// CreatePlan generates and stores a new plan. A failure at any step leaves the
// subject's previous plan in place.
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (plan.LearningPlan, error) {
	subject, err := s.subject(ctx, req.SubjectID)
	if err != nil {
		return plan.LearningPlan{}, err
	}

	var exam *catalog.Exam
	if req.ExamID != "" {
		e, err := s.exams.FetchExam(ctx, req.ExamID)
		if err != nil {
			return plan.LearningPlan{}, fmt.Errorf("fetch exam: %w", err)
		}
		if e.SubjectID != "" && e.SubjectID != subject.ID {
			return plan.LearningPlan{}, fmt.Errorf("%w: exam %s, subject %s", ErrExamMismatch, e.ID, subject.ID)
		}
		exam = &e
	}

	start := req.Start
	if start.IsZero() {
		start = s.now()
	}

	p, err := s.engine.Generate(ctx, plan.GenerateRequest{
		Subject: subject,
		Exam:    exam,
		Start:   start,
		End:     req.End,
	})
	if err != nil {
		return plan.LearningPlan{}, err
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return plan.LearningPlan{}, err
	}

	slog.Info("plan created",
		"plan_id", p.ID,
		"subject_id", subject.ID,
		"sessions", len(p.Sessions),
	)
	s.record(ctx, p, EventPlanCreated, map[string]any{
		"sessions": len(p.Sessions),
		"exam_id":  req.ExamID,
	})
	s.notify(p)
	return p, nil
}

func (s *Service) subject(ctx context.Context, id string) (catalog.Subject, error) {
	subjects, err := s.catalog.FetchSubjects(ctx)
	if err != nil {
		return catalog.Subject{}, fmt.Errorf("fetch subjects: %w", err)
	}
	for _, subj := range subjects {
		if subj.ID != id {
			continue
		}
		if !subj.Active {
			return catalog.Subject{}, fmt.Errorf("%w: %s", ErrSubjectInactive, id)
		}
		topics, err := s.catalog.FetchTopics(ctx, id)
		if err != nil {
			return catalog.Subject{}, fmt.Errorf("fetch topics: %w", err)
		}
		subj.Topics = topics
		return subj, nil
	}
	return catalog.Subject{}, fmt.Errorf("subject %s: %w", id, catalog.ErrNotFound)
}

// CompleteSession marks a session completed and adapts the plan to the
// reported performance. A non-empty expected fingerprint must match the
// stored plan.
func (s *Service) CompleteSession(ctx context.Context, planID, sessionID string, perf plan.SessionPerformance, expected string) (plan.LearningPlan, error) {
	return s.update(ctx, planID, expected, EventSessionCompleted, func(p plan.LearningPlan) (plan.LearningPlan, error) {
		done, err := plan.CompleteSession(p, sessionID, perf)
		if err != nil {
			return plan.LearningPlan{}, err
		}
		return s.engine.Adapt(ctx, done, perf)
	}, map[string]any{
		"session_id": sessionID,
		"accuracy":   perf.Accuracy(),
	})
}

// AdaptPlan applies a performance report to a plan without completing a session.
func (s *Service) AdaptPlan(ctx context.Context, planID string, perf plan.SessionPerformance, expected string) (plan.LearningPlan, error) {
	return s.update(ctx, planID, expected, EventPlanAdapted, func(p plan.LearningPlan) (plan.LearningPlan, error) {
		return s.engine.Adapt(ctx, p, perf)
	}, map[string]any{
		"accuracy": perf.Accuracy(),
	})
}

func (s *Service) update(
	ctx context.Context,
	planID, expected, eventType string,
	change func(plan.LearningPlan) (plan.LearningPlan, error),
	data map[string]any,
) (plan.LearningPlan, error) {
	unlock := s.lockPlan(planID)
	defer unlock()

	current, err := s.repo.Get(ctx, planID)
	if err != nil {
		return plan.LearningPlan{}, err
	}
	if expected != "" {
		fp, err := plan.Fingerprint(*current)
		if err != nil {
			return plan.LearningPlan{}, err
		}
		if fp != expected {
			return plan.LearningPlan{}, fmt.Errorf("%w: %s", ErrStalePlan, planID)
		}
	}

	next, err := change(*current)
	if err != nil {
		return plan.LearningPlan{}, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return plan.LearningPlan{}, err
	}

	slog.Info("plan updated",
		"plan_id", next.ID,
		"event", eventType,
		"adaptations", len(next.AdaptationHistory),
	)
	s.record(ctx, next, eventType, data)
	s.notify(next)
	return next, nil
}

// GetPlan returns a stored plan by id.
func (s *Service) GetPlan(ctx context.Context, planID string) (plan.LearningPlan, error) {
	p, err := s.repo.Get(ctx, planID)
	if err != nil {
		return plan.LearningPlan{}, err
	}
	return *p, nil
}

// CurrentPlan returns the subject's current plan, or nil when it has none.
func (s *Service) CurrentPlan(ctx context.Context, subjectID string) (*plan.LearningPlan, error) {
	return s.repo.Load(ctx, subjectID)
}

// Views derives the progress views of a stored plan. A zero now uses the
// service clock.
func (s *Service) Views(ctx context.Context, planID string, now time.Time) (plan.Views, error) {
	p, err := s.repo.Get(ctx, planID)
	if err != nil {
		return plan.Views{}, err
	}
	if now.IsZero() {
		now = s.now()
	}
	return plan.DeriveViews(*p, now), nil
}

func (s *Service) record(ctx context.Context, p plan.LearningPlan, eventType string, data map[string]any) {
	if err := s.events.LogEvent(ctx, Event{
		PlanID:    p.ID,
		SubjectID: p.Subject.ID,
		EventType: eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("event logging failed", "plan_id", p.ID, "type", eventType, "error", err)
	}
}

func (s *Service) notify(p plan.LearningPlan) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.PlanChanged(p.Clone())
	}
}
