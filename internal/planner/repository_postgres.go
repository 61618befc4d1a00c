package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
)

const dbTimeout = 5 * time.Second

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository is a PostgreSQL-backed Repository. Plans live in the
// plans table; adaptation records are appended to plan_adaptations and never
// rewritten.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed plan repository.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Save(ctx context.Context, p plan.LearningPlan) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	subject, err := json.Marshal(p.Subject)
	if err != nil {
		return storageErr("save", fmt.Errorf("marshal subject: %w", err))
	}
	sessions, err := json.Marshal(p.Sessions)
	if err != nil {
		return storageErr("save", fmt.Errorf("marshal sessions: %w", err))
	}
	var exam, examID any
	if p.Exam != nil {
		data, err := json.Marshal(p.Exam)
		if err != nil {
			return storageErr("save", fmt.Errorf("marshal exam: %w", err))
		}
		exam, examID = string(data), p.Exam.ID
	}

	upsert, args, err := psql.Insert("plans").
		Columns("id", "subject_id", "exam_id", "start_date", "end_date", "start_instant", "end_instant",
			"subject", "exam", "sessions", "updated_at").
		Values(p.ID, p.Subject.ID, examID, p.StartDate, p.EndDate, formatInstant(p.StartDate), formatInstant(p.EndDate),
			string(subject), exam, string(sessions), time.Now()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			exam_id = EXCLUDED.exam_id,
			end_date = EXCLUDED.end_date,
			end_instant = EXCLUDED.end_instant,
			subject = EXCLUDED.subject,
			exam = EXCLUDED.exam,
			sessions = EXCLUDED.sessions,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return storageErr("save", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("save", fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, upsert, args...); err != nil {
		return storageErr("save", fmt.Errorf("upsert plan: %w", err))
	}

	if len(p.AdaptationHistory) > 0 {
		insert := psql.Insert("plan_adaptations").
			Columns("id", "plan_id", "seq", "date", "instant", "reason", "description")
		for i, a := range p.AdaptationHistory {
			insert = insert.Values(a.ID, p.ID, i, a.Date, formatInstant(a.Date), string(a.Reason), a.Description)
		}
		query, args, err := insert.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
		if err != nil {
			return storageErr("save", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storageErr("save", fmt.Errorf("append adaptations: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("save", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (r *PostgresRepository) Load(ctx context.Context, subjectID string) (*plan.LearningPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := r.queryPlan(ctx, sq.Eq{"subject_id": subjectID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, planID string) (*plan.LearningPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := r.queryPlan(ctx, sq.Eq{"id": planID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return p, nil
}

func (r *PostgresRepository) queryPlan(ctx context.Context, where sq.Eq) (*plan.LearningPlan, error) {
	query, args, err := psql.
		Select("id", "start_date", "end_date", "start_instant", "end_instant", "subject", "exam", "sessions").
		From("plans").
		Where(where).
		OrderBy("updated_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		p                      plan.LearningPlan
		start, end             time.Time
		startText, endText     *string
		subject, exam, session []byte
	)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&start,
		&end,
		&startText,
		&endText,
		&subject,
		&exam,
		&session,
	); err != nil {
		return nil, err
	}

	if p.StartDate, err = parseInstant(startText, start); err != nil {
		return nil, fmt.Errorf("decode start date: %w", err)
	}
	if p.EndDate, err = parseInstant(endText, end); err != nil {
		return nil, fmt.Errorf("decode end date: %w", err)
	}

	if err := json.Unmarshal(subject, &p.Subject); err != nil {
		return nil, fmt.Errorf("decode subject: %w", err)
	}
	if err := json.Unmarshal(session, &p.Sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	if exam != nil {
		p.Exam = &catalog.Exam{}
		if err := json.Unmarshal(exam, p.Exam); err != nil {
			return nil, fmt.Errorf("decode exam: %w", err)
		}
	}

	history, err := r.adaptations(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.AdaptationHistory = history
	return &p, nil
}

func (r *PostgresRepository) adaptations(ctx context.Context, planID string) ([]plan.Adaptation, error) {
	query, args, err := psql.
		Select("id", "date", "instant", "reason", "description").
		From("plan_adaptations").
		Where(sq.Eq{"plan_id": planID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query adaptations: %w", err)
	}
	defer rows.Close()

	history := []plan.Adaptation{}
	for rows.Next() {
		var (
			a      plan.Adaptation
			date   time.Time
			text   *string
			reason string
		)
		if err := rows.Scan(&a.ID, &date, &text, &reason, &a.Description); err != nil {
			return nil, fmt.Errorf("scan adaptation: %w", err)
		}
		d, err := parseInstant(text, date)
		if err != nil {
			return nil, fmt.Errorf("decode adaptation %s date: %w", a.ID, err)
		}
		a.Date = d
		a.Reason = plan.AdaptationReason(reason)
		history = append(history, a)
	}
	return history, rows.Err()
}

// formatInstant keeps nanoseconds and the UTC offset, which TIMESTAMPTZ drops.
func formatInstant(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseInstant prefers the exact text form. Rows written before it existed
// fall back to the timestamp column.
func parseInstant(text *string, fallback time.Time) (time.Time, error) {
	if text == nil {
		return fallback, nil
	}
	return time.Parse(time.RFC3339Nano, *text)
}
