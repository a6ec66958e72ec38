package admincards

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

var cardColumns = []string{
	"id", "user_id", "created_by", "admin_name", "salon_name", "overall_score", "summary", "skills",
	"development_plan", "call_summary", "chat_summary", "test_summary", "is_shared", "share_token",
	"created_at", "updated_at",
}

func TestPGRepoGetShared(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(cardColumns).AddRow(
		"c1", "u1", "u1", "Ольга", nil, 7.5, "ok",
		`[{"name": "Приветствие", "key": "greeting", "score": 8}]`, nil,
		`{"total": 3, "avgScore": 6.5, "mainIssues": ["closing"]}`, nil,
		`{"roleplay": {"score": 5, "fearLevel": "high"}}`, true, "abc", now, now,
	)
	mock.ExpectQuery("WHERE share_token = \\$1 AND is_shared").WithArgs("abc").WillReturnRows(rows)

	card, err := repo.GetShared(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if len(card.Skills) != 1 || card.Skills[0].Score != 8 || card.DevelopmentPlan == nil {
		t.Fatalf("unexpected skills %+v", card)
	}
	if card.CallSummary == nil || card.CallSummary.Total != 3 || card.ChatSummary != nil {
		t.Fatalf("unexpected summaries %+v %+v", card.CallSummary, card.ChatSummary)
	}
	if card.TestSummary.Roleplay == nil || card.TestSummary.Roleplay.FearLevel != "high" || !card.IsShared {
		t.Fatalf("unexpected test summary %+v", card.TestSummary)
	}
}

func TestPGRepoGetMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM admin_cards").WithArgs("nope").WillReturnRows(sqlmock.NewRows(cardColumns))
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSetShare(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("UPDATE admin_cards").WithArgs("c1", true, "tok").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE admin_cards").WithArgs("c2", false, nil).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetShare(context.Background(), "c1", true, "tok"); err != nil {
		t.Fatalf("SetShare: %v", err)
	}
	if err := repo.SetShare(context.Background(), "c2", false, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO admin_cards").
		WithArgs("c1", "u1", "m1", "Ольга", sqlmock.AnyArg(), 7.0, sqlmock.AnyArg(), []byte("[]"), []byte("[]"),
			nil, nil, sqlmock.AnyArg(), false, sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), Card{ID: "c1", UserID: "u1", CreatedBy: "m1", AdminName: "Ольга", OverallScore: 7, CreatedAt: now})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
