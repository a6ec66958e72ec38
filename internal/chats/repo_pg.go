package chats

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
)

const settleGuard = ` AND status NOT IN ('COMPLETED', 'FAILED')`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new chat analysis.
func (r *PGRepo) Create(ctx context.Context, chat Chat) error {
	const query = `
INSERT INTO chat_analyses (id, user_id, admin_name, title, source, raw_text, image_urls, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	images := chat.ImageURLs
	if images == nil {
		images = []string{}
	}
	imagesPayload, err := db.MarshalJSONB(images)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		chat.ID,
		chat.UserID,
		nullString(chat.AdminName),
		chat.Title,
		string(chat.Source),
		chat.RawText,
		imagesPayload,
		string(chat.Status),
		chat.CreatedAt,
	)
	return err
}

const selectColumns = `
SELECT id, user_id, admin_name, title, source, raw_text, image_urls, status,
       overall_score, result, stage_scores, error_message, created_at, updated_at
FROM chat_analyses`

// GetForUser returns a chat owned by userID.
func (r *PGRepo) GetForUser(ctx context.Context, userID, chatID string) (Chat, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1 AND user_id = $2
LIMIT 1`, chatID, userID)
	chat, err := scanChat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, analysis.ErrNotFound
		}
		return Chat{}, err
	}
	return chat, nil
}

// ListByUser returns summary fields of a user's chats, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Chat, error) {
	const query = `
SELECT id, admin_name, title, source, status, overall_score, created_at
FROM chat_analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		var adminName sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&c.ID, &adminName, &c.Title, &c.Source, &c.Status, &score, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = userID
		c.AdminName = adminName.String
		if score.Valid {
			c.OverallScore = &score.Float64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCompleted returns full completed chats of a user, newest first.
func (r *PGRepo) ListCompleted(ctx context.Context, userID string, limit int) ([]Chat, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT $3`, userID, string(analysis.StatusCompleted), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Complete marks the chat COMPLETED with its result and stage scores.
func (r *PGRepo) Complete(ctx context.Context, chatID string, result analysis.Result, stageScores map[string]float64) error {
	resultPayload, err := db.MarshalJSONB(result)
	if err != nil {
		return err
	}
	scoresPayload, err := db.MarshalJSONB(stageScores)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE chat_analyses
SET status = $2, overall_score = $3, result = $4, stage_scores = $5, updated_at = now()
WHERE id = $1`+settleGuard,
		chatID, string(analysis.StatusCompleted), float64(result.OverallScore), resultPayload, scoresPayload)
	if err != nil {
		return err
	}
	return r.checkSettled(ctx, chatID, res)
}

// Fail marks the chat FAILED with message.
func (r *PGRepo) Fail(ctx context.Context, chatID, message string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE chat_analyses
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1`+settleGuard,
		chatID, string(analysis.StatusFailed), message)
	if err != nil {
		return err
	}
	return r.checkSettled(ctx, chatID, res)
}

func (r *PGRepo) checkSettled(ctx context.Context, chatID string, res sql.Result) error {
	if db.RowsAffected(res) > 0 {
		return nil
	}
	return db.SettleMiss(ctx, r.DB, "chat_analyses", chatID, analysis.ErrNotFound, analysis.ErrTerminalState)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(row scanner) (Chat, error) {
	var c Chat
	var adminName, errorMessage sql.NullString
	var images, result, scores sql.NullString
	var score sql.NullFloat64
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&adminName,
		&c.Title,
		&c.Source,
		&c.RawText,
		&images,
		&c.Status,
		&score,
		&result,
		&scores,
		&errorMessage,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Chat{}, err
	}
	c.AdminName = adminName.String
	c.ErrorMessage = errorMessage.String
	if score.Valid {
		c.OverallScore = &score.Float64
	}
	if err := db.UnmarshalJSONB(images, &c.ImageURLs); err != nil {
		return Chat{}, err
	}
	if result.Valid {
		var parsed analysis.Result
		if err := db.UnmarshalJSONB(result, &parsed); err == nil {
			c.Result = &parsed
		}
	}
	if err := db.UnmarshalJSONB(scores, &c.StageScores); err != nil {
		return Chat{}, err
	}
	return c, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
