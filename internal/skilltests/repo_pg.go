package skilltests

import (
	"context"
	"database/sql"

	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, res Result) error {
	analysisPayload, err := db.MarshalJSONB(res.Analysis)
	if err != nil {
		return err
	}
	weak := res.WeakAreas
	if weak == nil {
		weak = []string{}
	}
	weakPayload, err := db.MarshalJSONB(weak)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO test_results (id, user_id, test_type, case_id, input_text, audio_key, score, fear_level,
                          result, feedback, weak_areas, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		res.ID,
		res.UserID,
		string(res.TestType),
		nullString(res.CaseID),
		res.InputText,
		nullString(res.AudioKey),
		res.Score,
		nullString(res.FearLevel),
		analysisPayload,
		nullString(res.Feedback),
		weakPayload,
		res.CreatedAt,
	)
	return err
}

const selectColumns = `
SELECT id, user_id, test_type, case_id, input_text, audio_key, score, fear_level, result, feedback, weak_areas, created_at
FROM test_results`

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return r.query(ctx, selectColumns+`
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
}

func (r *PGRepo) LatestByType(ctx context.Context, userID string) (map[TestType]Result, error) {
	rows, err := r.query(ctx, `
SELECT DISTINCT ON (test_type) id, user_id, test_type, case_id, input_text, audio_key, score, fear_level,
       result, feedback, weak_areas, created_at
FROM test_results
WHERE user_id = $1
ORDER BY test_type, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	latest := make(map[TestType]Result, len(rows))
	for _, res := range rows {
		latest[res.TestType] = res
	}
	return latest, nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Result, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Result, 0)
	for rows.Next() {
		var res Result
		var caseID, inputText, audioKey, fearLevel, feedback, payload, weak sql.NullString
		if err := rows.Scan(
			&res.ID,
			&res.UserID,
			&res.TestType,
			&caseID,
			&inputText,
			&audioKey,
			&res.Score,
			&fearLevel,
			&payload,
			&feedback,
			&weak,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		res.CaseID = caseID.String
		res.InputText = inputText.String
		res.AudioKey = audioKey.String
		res.FearLevel = fearLevel.String
		res.Feedback = feedback.String
		if err := db.UnmarshalJSONB(payload, &res.Analysis); err != nil {
			return nil, err
		}
		if err := db.UnmarshalJSONB(weak, &res.WeakAreas); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
