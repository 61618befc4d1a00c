package planner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

const defaultCacheTTL = 10 * time.Minute

// CachedRepository is a write-through Redis cache in front of another
// Repository. Cache failures are logged and never fail the call. Save clears
// the cached entries before writing through.
type CachedRepository struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedRepository wraps next with a Redis cache. A zero ttl uses ten minutes.
func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedRepository{next: next, client: client, ttl: ttl}
}

func subjectKey(subjectID string) string { return "plan:subject:" + subjectID }
func planKey(planID string) string       { return "plan:id:" + planID }

func (r *CachedRepository) Save(ctx context.Context, p plan.LearningPlan) error {
	// A cached copy older than the durable plan must not outlive this call.
	r.invalidate(ctx, p)
	if err := r.next.Save(ctx, p); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		slog.Warn("cache encode failed", "plan_id", p.ID, "error", err)
		return nil
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, planKey(p.ID), data, r.ttl)
	pipe.Set(ctx, subjectKey(p.Subject.ID), data, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("cache write failed", "plan_id", p.ID, "error", err)
		r.invalidate(ctx, p)
	}
	return nil
}

func (r *CachedRepository) invalidate(ctx context.Context, p plan.LearningPlan) {
	if err := r.client.Del(ctx, planKey(p.ID), subjectKey(p.Subject.ID)).Err(); err != nil {
		slog.Warn("cache invalidate failed", "plan_id", p.ID, "error", err)
	}
}

func (r *CachedRepository) Load(ctx context.Context, subjectID string) (*plan.LearningPlan, error) {
	if p, ok := r.lookup(ctx, subjectKey(subjectID)); ok {
		return p, nil
	}
	p, err := r.next.Load(ctx, subjectID)
	if err != nil || p == nil {
		return p, err
	}
	r.store(ctx, subjectKey(subjectID), *p)
	return p, nil
}

func (r *CachedRepository) Get(ctx context.Context, planID string) (*plan.LearningPlan, error) {
	if p, ok := r.lookup(ctx, planKey(planID)); ok {
		return p, nil
	}
	p, err := r.next.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, planKey(planID), *p)
	return p, nil
}

func (r *CachedRepository) lookup(ctx context.Context, key string) (*plan.LearningPlan, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}

	var p plan.LearningPlan
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &p, true
}

func (r *CachedRepository) store(ctx context.Context, key string, p plan.LearningPlan) {
	data, err := json.Marshal(p)
	if err != nil {
		slog.Warn("cache encode failed", "plan_id", p.ID, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
