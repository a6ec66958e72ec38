package calls

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
)

const table = "call_analyses"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new call analysis.
func (r *PGRepo) Create(ctx context.Context, call Call) error {
	const query = `
INSERT INTO call_analyses (id, user_id, admin_name, title, audio_key, audio_file_name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		call.ID,
		call.UserID,
		nullString(call.AdminName),
		call.Title,
		call.AudioKey,
		call.AudioFileName,
		string(call.Status),
		call.CreatedAt,
	)
	return err
}

const selectColumns = `
SELECT id, user_id, admin_name, title, audio_key, audio_file_name, transcription, speaker_segments,
       duration_seconds, status, overall_score, result, stage_scores, error_message, created_at, updated_at
FROM call_analyses`

// Get returns a call by ID.
func (r *PGRepo) Get(ctx context.Context, callID string) (Call, error) {
	return r.getOne(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, callID))
}

// GetForUser returns a call owned by userID.
func (r *PGRepo) GetForUser(ctx context.Context, userID, callID string) (Call, error) {
	return r.getOne(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1 AND user_id = $2
LIMIT 1`, callID, userID))
}

func (r *PGRepo) getOne(row *sql.Row) (Call, error) {
	call, err := scanCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, analysis.ErrNotFound
		}
		return Call{}, err
	}
	return call, nil
}

// ListByUser returns summary fields of a user's calls, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Call, error) {
	const query = `
SELECT id, admin_name, title, status, overall_score, duration_seconds, created_at
FROM call_analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		var adminName sql.NullString
		var score sql.NullFloat64
		var duration sql.NullInt64
		if err := rows.Scan(&c.ID, &adminName, &c.Title, &c.Status, &score, &duration, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = userID
		c.AdminName = adminName.String
		if score.Valid {
			c.OverallScore = &score.Float64
		}
		if duration.Valid {
			d := int(duration.Int64)
			c.DurationSeconds = &d
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCompleted returns full completed calls of a user, newest first.
func (r *PGRepo) ListCompleted(ctx context.Context, userID string, limit int) ([]Call, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT $3`, userID, string(analysis.StatusCompleted), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkTranscribing moves the call to TRANSCRIBING.
func (r *PGRepo) MarkTranscribing(ctx context.Context, callID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE call_analyses
SET status = $2, updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'TRANSCRIBING')`,
		callID, string(analysis.StatusTranscribing))
	if err != nil {
		return err
	}
	return r.checkMoved(ctx, callID, res)
}

// AttachTranscript stores t and moves the call to ANALYZING.
func (r *PGRepo) AttachTranscript(ctx context.Context, callID string, t Transcript) error {
	segments, err := db.MarshalJSONB(t.Segments)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE call_analyses
SET status = $2, transcription = $3, speaker_segments = $4, duration_seconds = $5, updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'TRANSCRIBING')`,
		callID, string(analysis.StatusAnalyzing), t.Text, segments, t.DurationSeconds)
	if err != nil {
		return err
	}
	return r.checkMoved(ctx, callID, res)
}

// Complete marks the call COMPLETED with its result and stage scores.
func (r *PGRepo) Complete(ctx context.Context, callID string, result analysis.Result, stageScores map[string]float64) error {
	resultPayload, err := db.MarshalJSONB(result)
	if err != nil {
		return err
	}
	scoresPayload, err := db.MarshalJSONB(stageScores)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE call_analyses
SET status = $2, overall_score = $3, result = $4, stage_scores = $5, updated_at = now()
WHERE id = $1 AND status = 'ANALYZING'`,
		callID, string(analysis.StatusCompleted), float64(result.OverallScore), resultPayload, scoresPayload)
	if err != nil {
		return err
	}
	return r.checkMoved(ctx, callID, res)
}

// Fail marks the call FAILED with message.
func (r *PGRepo) Fail(ctx context.Context, callID, message string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE call_analyses
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`,
		callID, string(analysis.StatusFailed), message)
	if err != nil {
		return err
	}
	return r.checkMoved(ctx, callID, res)
}

func (r *PGRepo) checkMoved(ctx context.Context, callID string, res sql.Result) error {
	if db.RowsAffected(res) > 0 {
		return nil
	}
	return db.SettleMiss(ctx, r.DB, table, callID, analysis.ErrNotFound, analysis.ErrTerminalState)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (Call, error) {
	var c Call
	var adminName, transcription, errorMessage sql.NullString
	var segments, result, scores sql.NullString
	var duration sql.NullInt64
	var score sql.NullFloat64
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&adminName,
		&c.Title,
		&c.AudioKey,
		&c.AudioFileName,
		&transcription,
		&segments,
		&duration,
		&c.Status,
		&score,
		&result,
		&scores,
		&errorMessage,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Call{}, err
	}
	c.AdminName = adminName.String
	c.Transcription = transcription.String
	c.ErrorMessage = errorMessage.String
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if score.Valid {
		c.OverallScore = &score.Float64
	}
	if err := db.UnmarshalJSONB(segments, &c.SpeakerSegments); err != nil {
		return Call{}, err
	}
	if result.Valid {
		var parsed analysis.Result
		if err := db.UnmarshalJSONB(result, &parsed); err == nil {
			c.Result = &parsed
		}
	}
	if err := db.UnmarshalJSONB(scores, &c.StageScores); err != nil {
		return Call{}, err
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
