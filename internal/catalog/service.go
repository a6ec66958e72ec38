package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seregajade-png/analysis-beauty/internal/users"
)

// UserLookup resolves the salon a user belongs to.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Service manages the products of the caller's salon.
type Service struct {
	Repo  Repo
	Users UserLookup
	Now   func() time.Time
}

// SalonID returns the salon of userID. Users unknown to the store own a
// salon keyed by their own id.
func (s *Service) SalonID(ctx context.Context, userID string) (string, error) {
	if s.Users == nil {
		return userID, nil
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return userID, nil
		}
		return "", err
	}
	return user.SalonID(), nil
}

// List returns every product of the user's salon by name.
func (s *Service) List(ctx context.Context, userID string) ([]Product, error) {
	return s.list(ctx, userID, false)
}

// ListActive returns the active products offered for testing.
func (s *Service) ListActive(ctx context.Context, userID string) ([]Product, error) {
	return s.list(ctx, userID, true)
}

func (s *Service) list(ctx context.Context, userID string, activeOnly bool) ([]Product, error) {
	salonID, err := s.SalonID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListBySalon(ctx, salonID, activeOnly)
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.Repo.Get(ctx, id)
}

// Create adds a product to the user's salon.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Product, error) {
	salonID, err := s.SalonID(ctx, userID)
	if err != nil {
		return Product{}, err
	}
	now := s.now()
	p := Product{
		ID:        uuid.NewString(),
		SalonID:   salonID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(&p); err != nil {
		return Product{}, err
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Update replaces the writable fields of a product in the user's salon.
func (s *Service) Update(ctx context.Context, userID string, in Input) (Product, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Product{}, ErrNotFound
	}
	salonID, err := s.SalonID(ctx, userID)
	if err != nil {
		return Product{}, err
	}
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p.SalonID != salonID {
		return Product{}, ErrNotFound
	}
	if err := in.apply(&p); err != nil {
		return Product{}, err
	}
	p.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Delete removes a product of the user's salon.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	salonID, err := s.SalonID(ctx, userID)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, salonID, id)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
