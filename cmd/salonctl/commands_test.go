package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

type testEnv struct {
	repo     *users.MemoryRepo
	gotURL   string
	migrated bool
}

func newTestEnv(t *testing.T) (*testEnv, env) {
	t.Helper()
	te := &testEnv{repo: users.NewMemoryRepo()}
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return te, env{
		openDB: func(ctx context.Context, databaseURL string) (*sql.DB, error) {
			te.gotURL = databaseURL
			return conn, nil
		},
		migrate: func(ctx context.Context, conn *sql.DB) error {
			te.migrated = true
			return nil
		},
		version: func(*sql.DB) (int64, error) { return 6, nil },
		users:   func(*sql.DB) users.Repo { return te.repo },
	}
}

func execute(e env, args ...string) (string, error) {
	root := newRootCmd(e)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateUsesDatabaseURLFlag(t *testing.T) {
	te, e := newTestEnv(t)
	out, err := execute(e, "migrate", "--database-url", "postgres://local/salon")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !te.migrated || te.gotURL != "postgres://local/salon" {
		t.Fatalf("unexpected state migrated=%v url=%q", te.migrated, te.gotURL)
	}
	if !strings.Contains(out, "schema at version 6") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestMigrateReportsFailure(t *testing.T) {
	_, e := newTestEnv(t)
	e.migrate = func(context.Context, *sql.DB) error { return errors.New("boom") }
	if _, err := execute(e, "migrate", "--database-url", "postgres://x"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected migration error, got %v", err)
	}
}

func TestUsersCreateOwner(t *testing.T) {
	te, e := newTestEnv(t)
	out, err := execute(e, "users", "create", "--database-url", "postgres://x",
		"--email", "owner@salon.ru", "--password", "secret", "--role", "owner", "--salon", "Лотос", "--name", "Анна")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	user, err := te.repo.GetByEmail(context.Background(), "owner@salon.ru")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.Role != users.RoleOwner || user.SalonName != "Лотос" || user.Name != "Анна" {
		t.Fatalf("unexpected user %+v", user)
	}
	if auth.IsLegacyHash(user.PasswordHash) {
		t.Fatalf("expected bcrypt hash")
	}
	if !strings.Contains(out, "created OWNER owner@salon.ru") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUsersCreateDefaultsToAdmin(t *testing.T) {
	te, e := newTestEnv(t)
	if _, err := execute(e, "users", "create", "--database-url", "postgres://x",
		"--email", "anna@salon.ru", "--password", "secret", "--manager", "m-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	user, err := te.repo.GetByEmail(context.Background(), "anna@salon.ru")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.Role != users.RoleAdmin || user.ManagerID != "m-1" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUsersCreateRejectsUnknownRole(t *testing.T) {
	_, e := newTestEnv(t)
	if _, err := execute(e, "users", "create", "--database-url", "postgres://x",
		"--email", "a@b.c", "--password", "p", "--role", "janitor"); err == nil {
		t.Fatalf("expected role error")
	}
}

func TestUsersCreateRequiresEmail(t *testing.T) {
	_, e := newTestEnv(t)
	if _, err := execute(e, "users", "create", "--database-url", "postgres://x", "--password", "p"); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

func TestUsersResetPasswordLegacy(t *testing.T) {
	te, e := newTestEnv(t)
	if _, err := execute(e, "users", "create", "--database-url", "postgres://x",
		"--email", "anna@salon.ru", "--password", "old"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := execute(e, "users", "reset-password", "--database-url", "postgres://x",
		"--email", "anna@salon.ru", "--password", "new", "--legacy")
	if err != nil {
		t.Fatalf("reset-password: %v", err)
	}
	user, err := te.repo.GetByEmail(context.Background(), "anna@salon.ru")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.PasswordHash != auth.LegacyHash("new") {
		t.Fatalf("expected legacy hash of new password")
	}
	if !strings.Contains(out, "password updated for anna@salon.ru") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUsersResetPasswordUnknownEmail(t *testing.T) {
	_, e := newTestEnv(t)
	if _, err := execute(e, "users", "reset-password", "--database-url", "postgres://x",
		"--email", "ghost@salon.ru", "--password", "p"); err == nil {
		t.Fatalf("expected not found error")
	}
}
