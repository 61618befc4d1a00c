// Package catalog holds the subject, topic and exam records plans are built
// from, and a filesystem-backed catalog that reads them from YAML.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnavailable means the catalog could not supply subject or topic data.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotFound means the requested record does not exist in the catalog.
	ErrNotFound = errors.New("not found")
)

//go:embed subject.schema.json
var subjectSchemaJSON string

var subjectSchema = mustCompileSchema(subjectSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile subject schema: %v", err))
	}
	return s
}

// subjectFile is the on-disk YAML layout of one subject.
type subjectFile struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	Color         string      `yaml:"color"`
	Symbol        string      `yaml:"symbol"`
	Active        *bool       `yaml:"active"`
	CurriculumRef string      `yaml:"curriculum_ref"`
	Topics        []topicFile `yaml:"topics"`
	Exams         []examFile  `yaml:"exams"`
}

type topicFile struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	ParentID string `yaml:"parent_id"`
}

type examFile struct {
	ID                     string    `yaml:"id"`
	Title                  string    `yaml:"title"`
	Date                   time.Time `yaml:"date"`
	StartTime              time.Time `yaml:"start_time"`
	EndTime                time.Time `yaml:"end_time"`
	Location               string    `yaml:"location"`
	Importance             string    `yaml:"importance"`
	PreparationStatus      string    `yaml:"preparation_status"`
	TopicIDs               []string  `yaml:"topic_ids"`
	Description            string    `yaml:"description"`
	ReminderOffsetsSeconds []int64   `yaml:"reminder_offsets_seconds"`
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLanguage sets the collation language used to order subjects by name.
func WithLanguage(tag language.Tag) LoaderOption {
	return func(l *Loader) {
		l.lang = tag
	}
}

// Loader loads and caches the catalog from a directory of subject YAML files.
type Loader struct {
	rootDir  string
	lang     language.Tag
	subjects map[string]Subject
	exams    map[string]Exam
	mu       sync.RWMutex
}

// NewLoader creates a catalog loader and loads all content.
func NewLoader(rootDir string, opts ...LoaderOption) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		lang:    language.English,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the catalog directory. On failure the previously loaded
// content stays in place.
func (l *Loader) Reload() error {
	subjects := make(map[string]Subject)
	exams := make(map[string]Exam)

	err := filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		subject, subjectExams, ok := l.loadSubject(path)
		if !ok {
			return nil
		}
		subjects[subject.ID] = subject
		for _, e := range subjectExams {
			exams[e.ID] = e
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: loading %s: %v", ErrUnavailable, l.rootDir, err)
	}

	l.mu.Lock()
	l.subjects = subjects
	l.exams = exams
	l.mu.Unlock()

	slog.Info("catalog loaded", "subjects", len(subjects), "exams", len(exams))
	return nil
}

func (l *Loader) loadSubject(path string) (Subject, []Exam, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable catalog file", "path", path, "error", err)
		return Subject{}, nil, false
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
		return Subject{}, nil, false
	}
	result, err := subjectSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		slog.Warn("skipping catalog file", "path", path, "error", err)
		return Subject{}, nil, false
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		slog.Warn("skipping catalog file failing schema", "path", path, "problems", problems)
		return Subject{}, nil, false
	}

	var f subjectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
		return Subject{}, nil, false
	}

	subject := f.toSubject()
	if err := subject.Validate(); err != nil {
		slog.Warn("skipping inconsistent subject", "path", path, "error", err)
		return Subject{}, nil, false
	}

	idx := subject.TopicIndex()
	exams := make([]Exam, 0, len(f.Exams))
	for _, ef := range f.Exams {
		exams = append(exams, ef.toExam(subject.ID, idx))
	}
	return subject, exams, true
}

func (f subjectFile) toSubject() Subject {
	active := true
	if f.Active != nil {
		active = *f.Active
	}
	s := Subject{
		ID:            f.ID,
		Name:          f.Name,
		Color:         f.Color,
		Symbol:        f.Symbol,
		Active:        active,
		CurriculumRef: f.CurriculumRef,
		Topics:        make([]Topic, 0, len(f.Topics)),
	}
	children := make(map[string][]string)
	for _, tf := range f.Topics {
		if tf.ParentID != "" {
			children[tf.ParentID] = append(children[tf.ParentID], tf.ID)
		}
	}
	for _, tf := range f.Topics {
		s.Topics = append(s.Topics, Topic{
			ID:          tf.ID,
			Name:        tf.Name,
			SubjectID:   f.ID,
			ParentID:    tf.ParentID,
			SubtopicIDs: children[tf.ID],
		})
	}
	return s
}

func (f examFile) toExam(subjectID string, topics map[string]Topic) Exam {
	e := Exam{
		ID:                f.ID,
		Title:             f.Title,
		Date:              f.Date,
		StartTime:         f.StartTime,
		EndTime:           f.EndTime,
		Location:          f.Location,
		Importance:        Importance(f.Importance),
		PreparationStatus: PreparationStatus(f.PreparationStatus),
		SubjectID:         subjectID,
		Description:       f.Description,
	}
	if !e.Importance.IsValid() {
		e.Importance = ImportanceMedium
	}
	if !e.PreparationStatus.IsValid() {
		e.PreparationStatus = StatusNotStarted
	}
	for _, id := range f.TopicIDs {
		if t, ok := topics[id]; ok {
			e.Topics = append(e.Topics, t)
		}
	}
	for _, s := range f.ReminderOffsetsSeconds {
		e.ReminderOffsets = append(e.ReminderOffsets, time.Duration(s)*time.Second)
	}
	return e
}

// Subject returns a subject by id.
func (l *Loader) Subject(id string) (Subject, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.subjects[id]
	return s, ok
}

// AllSubjects returns every loaded subject ordered by name.
func (l *Loader) AllSubjects() []Subject {
	l.mu.RLock()
	subjects := make([]Subject, 0, len(l.subjects))
	for _, s := range l.subjects {
		subjects = append(subjects, s)
	}
	l.mu.RUnlock()

	c := collate.New(l.lang)
	sort.Slice(subjects, func(i, j int) bool {
		if cmp := c.CompareString(subjects[i].Name, subjects[j].Name); cmp != 0 {
			return cmp < 0
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects
}

// AllExams returns every loaded exam ordered by date.
func (l *Loader) AllExams() []Exam {
	l.mu.RLock()
	exams := make([]Exam, 0, len(l.exams))
	for _, e := range l.exams {
		exams = append(exams, e)
	}
	l.mu.RUnlock()

	sortExams(exams)
	return exams
}

// FetchSubjects returns all subjects.
func (l *Loader) FetchSubjects(ctx context.Context) ([]Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.AllSubjects(), nil
}

// FetchTopics returns the topics of a subject.
func (l *Loader) FetchTopics(ctx context.Context, subjectID string) ([]Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s, ok := l.Subject(subjectID)
	if !ok {
		return nil, fmt.Errorf("subject %s: %w", subjectID, ErrNotFound)
	}
	return append([]Topic(nil), s.Topics...), nil
}

// FetchExam returns an exam by id.
func (l *Loader) FetchExam(ctx context.Context, id string) (Exam, error) {
	if err := ctx.Err(); err != nil {
		return Exam{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// FetchExams returns all exams ordered by date.
func (l *Loader) FetchExams(ctx context.Context) ([]Exam, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.AllExams(), nil
}
