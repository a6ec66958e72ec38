package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
)

func TestAuthenticateRehashesLegacyPassword(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	_ = repo.Create(ctx, User{ID: "u1", Email: "olga@salon.ru", PasswordHash: auth.LegacyHash("secret"), Role: RoleAdmin})

	user, err := svc.Authenticate(ctx, "OLGA@salon.ru", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user %+v", user)
	}
	stored, _ := repo.GetByID(ctx, "u1")
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("expected bcrypt hash after login, got %q", stored.PasswordHash)
	}
	if _, err := svc.Authenticate(ctx, "olga@salon.ru", "secret"); err != nil {
		t.Fatalf("login with rehashed password: %v", err)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	_ = repo.Create(ctx, User{ID: "u1", Email: "a@b.c", PasswordHash: auth.LegacyHash("right")})
	_ = repo.Create(ctx, User{ID: "u2", Email: "google@b.c"})

	cases := []struct{ email, password string }{
		{"a@b.c", "wrong"},
		{"missing@b.c", "right"},
		{"google@b.c", "anything"},
		{"", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Authenticate(%q): expected ErrInvalidCredentials, got %v", tc.email, err)
		}
	}
}

func TestUpsertFromGoogleKeepsExistingRole(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.UpsertFromGoogle(ctx, "new@salon.ru", "Новый")
	if err != nil || created.Role != RoleAdmin {
		t.Fatalf("unexpected first sign-in %+v %v", created, err)
	}
	_ = repo.Create(ctx, User{ID: "owner", Email: "owner@salon.ru", Role: RoleOwner})
	again, err := svc.UpsertFromGoogle(ctx, "owner@salon.ru", "Владелец")
	if err != nil || again.ID != "owner" || again.Role != RoleOwner {
		t.Fatalf("existing user must be kept: %+v %v", again, err)
	}
}

func TestCreateAndResetPassword(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, NewUser{Email: "x@y.z", Password: "p", Role: "boss"}); err == nil {
		t.Fatalf("expected unknown role error")
	}
	user, err := svc.Create(ctx, NewUser{Email: "x@y.z", Password: "p", Role: "manager"})
	if err != nil || user.Role != RoleManager {
		t.Fatalf("Create: %+v %v", user, err)
	}
	if _, err := svc.Create(ctx, NewUser{Email: "X@y.z", Password: "p"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "x@y.z", "new", true); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	stored, _ := svc.GetByID(ctx, user.ID)
	if stored.PasswordHash != auth.LegacyHash("new") {
		t.Fatalf("expected legacy hash, got %q", stored.PasswordHash)
	}
}

func TestSalonID(t *testing.T) {
	if (User{ID: "a"}).SalonID() != "a" {
		t.Fatalf("owner salon must be its own id")
	}
	if (User{ID: "a", ManagerID: "m"}).SalonID() != "m" {
		t.Fatalf("managed user salon must be the manager id")
	}
}
