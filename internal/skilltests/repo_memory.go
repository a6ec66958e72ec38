package skilltests

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores results in memory.
type MemoryRepo struct {
	mu      sync.RWMutex
	results []Result
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Create(ctx context.Context, res Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Result, 0)
	for _, res := range r.results {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) LatestByType(ctx context.Context, userID string) (map[TestType]Result, error) {
	all, err := r.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	latest := make(map[TestType]Result)
	for _, res := range all {
		if _, ok := latest[res.TestType]; !ok {
			latest[res.TestType] = res
		}
	}
	return latest, nil
}
