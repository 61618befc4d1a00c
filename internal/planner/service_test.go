package planner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

var testNow = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

type stubCatalog struct {
	subjects []catalog.Subject
	exams    []catalog.Exam
	err      error
}

func (c *stubCatalog) FetchSubjects(context.Context) ([]catalog.Subject, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.subjects, nil
}

func (c *stubCatalog) FetchTopics(_ context.Context, subjectID string) ([]catalog.Topic, error) {
	for _, s := range c.subjects {
		if s.ID == subjectID {
			return s.Topics, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (c *stubCatalog) FetchExam(_ context.Context, id string) (catalog.Exam, error) {
	for _, e := range c.exams {
		if e.ID == id {
			return e, nil
		}
	}
	return catalog.Exam{}, catalog.ErrNotFound
}

func (c *stubCatalog) FetchExams(context.Context) ([]catalog.Exam, error) {
	return c.exams, nil
}

type failingRepo struct {
	planner.Repository
}

func (failingRepo) Save(context.Context, plan.LearningPlan) error {
	return &planner.StorageError{Op: "save", Err: errors.New("disk full")}
}

type recordingNotifier struct {
	mu    sync.Mutex
	plans []plan.LearningPlan
}

func (n *recordingNotifier) PlanChanged(p plan.LearningPlan) {
	n.mu.Lock()
	n.plans = append(n.plans, p)
	n.mu.Unlock()
}

func newCatalog() *stubCatalog {
	return &stubCatalog{
		subjects: []catalog.Subject{
			{ID: "math", Name: "Mathematics", Active: true, Topics: []catalog.Topic{
				{ID: "algebra", Name: "Algebra", SubjectID: "math"},
				{ID: "geometry", Name: "Geometry", SubjectID: "math"},
			}},
			{ID: "chem", Name: "Chemistry", Active: false},
		},
		exams: []catalog.Exam{
			{ID: "algebra-test", SubjectID: "math", Date: testNow.AddDate(0, 0, 10)},
			{ID: "chem-final", SubjectID: "chem", Date: testNow.AddDate(0, 0, 3)},
			{ID: "old", SubjectID: "math", Date: testNow.AddDate(0, 0, -3)},
		},
	}
}

func newService(t *testing.T, repo planner.Repository) (*planner.Service, *planner.MemoryEventLogger, *recordingNotifier) {
	t.Helper()
	cat := newCatalog()
	events := planner.NewMemoryEventLogger()
	notifier := &recordingNotifier{}
	svc := planner.NewService(planner.ServiceConfig{
		Engine:     plan.NewEngine(plan.EngineConfig{Now: func() time.Time { return testNow }}),
		Catalog:    cat,
		Exams:      cat,
		Repository: repo,
		Events:     events,
		Notifier:   notifier,
		Now:        func() time.Time { return testNow },
	})
	return svc, events, notifier
}

func TestService_CreatePlan(t *testing.T) {
	repo := planner.NewMemoryRepository()
	svc, events, notifier := newService(t, repo)

	p, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math", ExamID: "algebra-test"})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	if p.Exam == nil || p.Exam.ID != "algebra-test" {
		t.Errorf("Exam = %+v", p.Exam)
	}
	if !p.StartDate.Equal(testNow) {
		t.Errorf("StartDate = %v, want %v", p.StartDate, testNow)
	}
	if len(p.Sessions) != 5 {
		t.Errorf("sessions = %d, want 5", len(p.Sessions))
	}
	if len(p.Sessions[0].Topics) != 2 {
		t.Errorf("session topics = %d, want 2", len(p.Sessions[0].Topics))
	}

	current, err := svc.CurrentPlan(t.Context(), "math")
	if err != nil || current == nil || current.ID != p.ID {
		t.Fatalf("CurrentPlan() = %v, %v", current, err)
	}
	if got := events.Events(); len(got) != 1 || got[0].EventType != planner.EventPlanCreated {
		t.Errorf("events = %+v", got)
	}
	if len(notifier.plans) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.plans))
	}
}

func TestService_CreatePlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     planner.CreatePlanRequest
		wantErr error
	}{
		{"unknown subject", planner.CreatePlanRequest{SubjectID: "bio"}, catalog.ErrNotFound},
		{"inactive subject", planner.CreatePlanRequest{SubjectID: "chem"}, planner.ErrSubjectInactive},
		{"unknown exam", planner.CreatePlanRequest{SubjectID: "math", ExamID: "nope"}, catalog.ErrNotFound},
		{"exam of other subject", planner.CreatePlanRequest{SubjectID: "math", ExamID: "chem-final"}, planner.ErrExamMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t, planner.NewMemoryRepository())
			_, err := svc.CreatePlan(t.Context(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreatePlan() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_CreatePlan_CatalogUnavailable(t *testing.T) {
	cat := &stubCatalog{err: catalog.ErrUnavailable}
	svc := planner.NewService(planner.ServiceConfig{Catalog: cat, Exams: cat, Repository: planner.NewMemoryRepository()})

	_, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math"})
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Errorf("CreatePlan() error = %v, want ErrUnavailable", err)
	}
}

func TestService_CreatePlan_StorageFailureKeepsPrevious(t *testing.T) {
	repo := planner.NewMemoryRepository()
	svc, _, _ := newService(t, repo)
	first, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math"})
	if err != nil {
		t.Fatal(err)
	}

	broken, _, _ := newService(t, failingRepo{repo})
	_, err = broken.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math"})
	var se *planner.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("CreatePlan() error = %v, want StorageError", err)
	}

	current, _ := repo.Load(t.Context(), "math")
	if current == nil || current.ID != first.ID {
		t.Errorf("previous plan replaced after failed save")
	}
}

func TestService_CompleteSession(t *testing.T) {
	svc, events, notifier := newService(t, planner.NewMemoryRepository())
	p, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math", End: testNow.AddDate(0, 0, 8)})
	if err != nil {
		t.Fatal(err)
	}
	fp, err := plan.Fingerprint(p)
	if err != nil {
		t.Fatal(err)
	}

	perf := plan.SessionPerformance{CorrectAnswers: 8, TotalQuestions: 10}
	got, err := svc.CompleteSession(t.Context(), p.ID, p.Sessions[0].ID, perf, fp)
	if err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}
	if !got.Sessions[0].IsCompleted || got.Sessions[0].Performance == nil {
		t.Errorf("session not completed: %+v", got.Sessions[0])
	}
	if len(got.AdaptationHistory) != 1 {
		t.Errorf("history = %d, want 1", len(got.AdaptationHistory))
	}

	views, err := svc.Views(t.Context(), p.ID, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if views.Progress != 0.25 {
		t.Errorf("Progress = %v, want 0.25", views.Progress)
	}

	// The fingerprint of the original plan is now stale.
	_, err = svc.CompleteSession(t.Context(), p.ID, p.Sessions[1].ID, perf, fp)
	if !errors.Is(err, planner.ErrStalePlan) {
		t.Errorf("second CompleteSession() error = %v, want ErrStalePlan", err)
	}

	if n := len(events.Events()); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
	if n := len(notifier.plans); n != 2 {
		t.Errorf("notifications = %d, want 2", n)
	}
}

func TestService_CompleteSession_Errors(t *testing.T) {
	svc, _, _ := newService(t, planner.NewMemoryRepository())
	p, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		planID  string
		session string
		perf    plan.SessionPerformance
		wantErr error
	}{
		{"unknown plan", "missing", p.Sessions[0].ID, plan.SessionPerformance{}, planner.ErrPlanNotFound},
		{"unknown session", p.ID, "missing", plan.SessionPerformance{}, plan.ErrSessionNotFound},
		{"invalid performance", p.ID, p.Sessions[0].ID, plan.SessionPerformance{CorrectAnswers: 3, TotalQuestions: 1}, plan.ErrInvalidPerformance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompleteSession(t.Context(), tt.planID, tt.session, tt.perf, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompleteSession() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	stored, _ := svc.GetPlan(t.Context(), p.ID)
	if len(stored.AdaptationHistory) != 0 {
		t.Error("failed operations changed the stored plan")
	}
}

func TestService_AdaptPlan_Concurrent(t *testing.T) {
	svc, _, _ := newService(t, planner.NewMemoryRepository())
	p, err := svc.CreatePlan(t.Context(), planner.CreatePlanRequest{SubjectID: "math"})
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdaptPlan(context.Background(), p.ID, plan.SessionPerformance{CorrectAnswers: 1, TotalQuestions: 2}, ""); err != nil {
				t.Errorf("AdaptPlan() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.GetPlan(t.Context(), p.ID)
	if len(got.AdaptationHistory) != n {
		t.Errorf("history = %d, want %d", len(got.AdaptationHistory), n)
	}
}

func TestService_Exams(t *testing.T) {
	svc, _, _ := newService(t, planner.NewMemoryRepository())

	all, err := svc.Exams(t.Context(), catalog.FrameAll, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "chem-final" {
		t.Errorf("Exams(all) = %+v", all)
	}

	week, _ := svc.Exams(t.Context(), catalog.FrameWeek, "")
	if len(week) != 1 || week[0].ID != "chem-final" {
		t.Errorf("Exams(week) = %+v", week)
	}

	math, _ := svc.Exams(t.Context(), catalog.FrameAll, "math")
	if len(math) != 1 || math[0].ID != "algebra-test" {
		t.Errorf("Exams(math) = %+v", math)
	}
}
