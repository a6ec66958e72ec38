package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// UpsertByEmail returns the user with email, creating it from user when
	// absent. An existing user keeps its role and password.
	UpsertByEmail(ctx context.Context, user User) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	// ManagedIDs lists users whose manager is managerID.
	ManagedIDs(ctx context.Context, managerID string) ([]string, error)
}
