package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoListBySalon(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "salon_id", "name", "category", "characteristics", "advantages", "benefits", "price",
		"target_audience", "objections", "is_active", "created_at", "updated_at",
	}).
		AddRow("p1", "s1", "Кератин", nil, "c", "a", "b", 4500.0, nil, `{"дорого":"нет"}`, true, now, now).
		AddRow("p2", "s1", "Маска", "уход", "", "", "", nil, "все", nil, true, now, now)
	mock.ExpectQuery("SELECT id, salon_id").WithArgs("s1", true).WillReturnRows(rows)

	got, err := repo.ListBySalon(context.Background(), "s1", true)
	if err != nil {
		t.Fatalf("ListBySalon: %v", err)
	}
	if len(got) != 2 || *got[0].Price != 4500 || got[0].Objections["дорого"] != "нет" {
		t.Fatalf("unexpected products %+v", got)
	}
	if got[1].Price != nil || got[1].Objections == nil || got[1].Category != "уход" {
		t.Fatalf("unexpected second product %+v", got[1])
	}
}

func TestPGRepoDeleteMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("DELETE FROM products").WithArgs("p1", "s1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "s1", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("p1", "s1", "Кератин", sqlmock.AnyArg(), "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), []byte("{}"), true, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), Product{ID: "p1", SalonID: "s1", Name: "Кератин", IsActive: true, CreatedAt: now}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
