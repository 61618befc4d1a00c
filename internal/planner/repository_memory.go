package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	plans     map[string]plan.LearningPlan
	bySubject map[string]string
	mu        sync.RWMutex
}

// NewMemoryRepository creates a new in-memory plan repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plans:     make(map[string]plan.LearningPlan),
		bySubject: make(map[string]string),
	}
}

func (r *MemoryRepository) Save(ctx context.Context, p plan.LearningPlan) error {
	if err := ctx.Err(); err != nil {
		return storageErr("save", err)
	}
	if p.ID == "" {
		return storageErr("save", fmt.Errorf("plan id is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[p.ID] = p.Clone()
	r.bySubject[p.Subject.ID] = p.ID
	return nil
}

func (r *MemoryRepository) Load(ctx context.Context, subjectID string) (*plan.LearningPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("load", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySubject[subjectID]
	if !ok {
		return nil, nil
	}
	p := r.plans[id].Clone()
	return &p, nil
}

func (r *MemoryRepository) Get(ctx context.Context, planID string) (*plan.LearningPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[planID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	p = p.Clone()
	return &p, nil
}
