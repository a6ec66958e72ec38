package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores products in memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Product
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Product)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListBySalon(ctx context.Context, salonID string, activeOnly bool) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Product, 0)
	for _, p := range r.byID {
		if p.SalonID != salonID || (activeOnly && !p.IsActive) {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[p.ID]
	if !ok || existing.SalonID != p.SalonID {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, salonID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.SalonID != salonID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
