package admincards

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores cards in memory.
type MemoryRepo struct {
	mu    sync.RWMutex
	cards map[string]Card
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{cards: make(map[string]Card)}
}

func (r *MemoryRepo) Create(ctx context.Context, card Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[card.ID] = card
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Card, error) {
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	return card, nil
}

func (r *MemoryRepo) ListByUsers(ctx context.Context, userIDs []string) ([]Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var allowed map[string]struct{}
	if userIDs != nil {
		allowed = make(map[string]struct{}, len(userIDs))
		for _, id := range userIDs {
			allowed[id] = struct{}{}
		}
	}
	r.mu.RLock()
	out := make([]Card, 0)
	for _, card := range r.cards {
		if allowed != nil {
			if _, ok := allowed[card.UserID]; !ok {
				continue
			}
		}
		out = append(out, card)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) SetShare(ctx context.Context, id string, shared bool, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[id]
	if !ok {
		return ErrNotFound
	}
	card.IsShared = shared
	card.ShareToken = token
	card.UpdatedAt = time.Now().UTC()
	r.cards[id] = card
	return nil
}

func (r *MemoryRepo) GetShared(ctx context.Context, token string) (Card, error) {
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, card := range r.cards {
		if card.IsShared && token != "" && card.ShareToken == token {
			return card, nil
		}
	}
	return Card{}, ErrNotFound
}
