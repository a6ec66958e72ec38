package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Authenticate checks email and password. A matching legacy SHA-256 hash is
// replaced by a bcrypt hash; a failed rehash is logged and does not fail the
// login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	needsRehash, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if needsRehash {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

func (s *Service) rehash(ctx context.Context, user User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.Repo.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		telemetry.Warn("auth.rehash_failed", map[string]any{"user_id": user.ID, "error": err})
		return
	}
	telemetry.Info("auth.rehashed", map[string]any{"user_id": user.ID})
}

// UpsertFromGoogle returns the user with email, creating an ADMIN on first
// sign-in.
func (s *Service) UpsertFromGoogle(ctx context.Context, email, name string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, errors.New("email is required")
	}
	return s.Repo.UpsertByEmail(ctx, User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  strings.TrimSpace(name),
		Role:  RoleAdmin,
	})
}

// NewUser describes an account created from the command line.
type NewUser struct {
	Email     string
	Name      string
	Password  string
	Role      string
	SalonName string
	ManagerID string
	// Legacy stores a SHA-256 hash instead of bcrypt.
	Legacy bool
}

// Create registers a user with a password.
func (s *Service) Create(ctx context.Context, in NewUser) (User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return User{}, errors.New("email and password are required")
	}
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = RoleAdmin
	}
	if !ValidRole(role) {
		return User{}, fmt.Errorf("unknown role %q", in.Role)
	}
	hash, err := passwordHash(in.Password, in.Legacy)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		SalonName:    strings.TrimSpace(in.SalonName),
		ManagerID:    strings.TrimSpace(in.ManagerID),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ResetPassword replaces the password of the user with email.
func (s *Service) ResetPassword(ctx context.Context, email, password string, legacy bool) error {
	if password == "" {
		return errors.New("password is required")
	}
	user, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	hash, err := passwordHash(password, legacy)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePasswordHash(ctx, user.ID, hash)
}

func passwordHash(password string, legacy bool) (string, error) {
	if legacy {
		return auth.LegacyHash(password), nil
	}
	return auth.HashPassword(password)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// ManagedIDs lists the users managed by managerID.
func (s *Service) ManagedIDs(ctx context.Context, managerID string) ([]string, error) {
	return s.Repo.ManagedIDs(ctx, managerID)
}
