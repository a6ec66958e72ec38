package admincards

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, card Card) error {
	skills, err := db.MarshalJSONB(nonNilSkills(card.Skills))
	if err != nil {
		return err
	}
	plan, err := db.MarshalJSONB(nonNilPlan(card.DevelopmentPlan))
	if err != nil {
		return err
	}
	callSummary, err := db.MarshalJSONB(card.CallSummary)
	if err != nil {
		return err
	}
	chatSummary, err := db.MarshalJSONB(card.ChatSummary)
	if err != nil {
		return err
	}
	testSummary, err := db.MarshalJSONB(card.TestSummary)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO admin_cards (id, user_id, created_by, admin_name, salon_name, overall_score, summary, skills,
                         development_plan, call_summary, chat_summary, test_summary, is_shared, share_token,
                         created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		card.ID,
		card.UserID,
		card.CreatedBy,
		card.AdminName,
		nullString(card.SalonName),
		card.OverallScore,
		nullString(card.Summary),
		skills,
		plan,
		callSummary,
		chatSummary,
		testSummary,
		card.IsShared,
		nullString(card.ShareToken),
		card.CreatedAt,
	)
	return err
}

const selectColumns = `
SELECT id, user_id, created_by, admin_name, salon_name, overall_score, summary, skills, development_plan,
       call_summary, chat_summary, test_summary, is_shared, share_token, created_at, updated_at
FROM admin_cards`

func (r *PGRepo) Get(ctx context.Context, id string) (Card, error) {
	return r.getOne(ctx, selectColumns+`
WHERE id = $1`, id)
}

func (r *PGRepo) GetShared(ctx context.Context, token string) (Card, error) {
	return r.getOne(ctx, selectColumns+`
WHERE share_token = $1 AND is_shared`, token)
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (Card, error) {
	card, err := scanCard(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	return card, nil
}

func (r *PGRepo) ListByUsers(ctx context.Context, userIDs []string) ([]Card, error) {
	var rows *sql.Rows
	var err error
	if userIDs == nil {
		rows, err = r.DB.QueryContext(ctx, selectColumns+`
ORDER BY created_at DESC`)
	} else {
		rows, err = r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = ANY($1)
ORDER BY created_at DESC`, userIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetShare(ctx context.Context, id string, shared bool, token string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE admin_cards
SET is_shared = $2, share_token = $3, updated_at = now()
WHERE id = $1`, id, shared, nullString(token))
	if err != nil {
		return err
	}
	if db.RowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (Card, error) {
	var c Card
	var salonName, summary, shareToken sql.NullString
	var skills, plan, callSummary, chatSummary, testSummary sql.NullString
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.CreatedBy,
		&c.AdminName,
		&salonName,
		&c.OverallScore,
		&summary,
		&skills,
		&plan,
		&callSummary,
		&chatSummary,
		&testSummary,
		&c.IsShared,
		&shareToken,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Card{}, err
	}
	c.SalonName = salonName.String
	c.Summary = summary.String
	c.ShareToken = shareToken.String
	for _, col := range []struct {
		raw sql.NullString
		dst any
	}{
		{skills, &c.Skills},
		{plan, &c.DevelopmentPlan},
		{callSummary, &c.CallSummary},
		{chatSummary, &c.ChatSummary},
		{testSummary, &c.TestSummary},
	} {
		if err := db.UnmarshalJSONB(col.raw, col.dst); err != nil {
			return Card{}, err
		}
	}
	c.Skills = nonNilSkills(c.Skills)
	c.DevelopmentPlan = nonNilPlan(c.DevelopmentPlan)
	return c, nil
}

func nonNilSkills(s []Skill) []Skill {
	if s == nil {
		return []Skill{}
	}
	return s
}

func nonNilPlan(p []PlanStep) []PlanStep {
	if p == nil {
		return []PlanStep{}
	}
	return p
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
