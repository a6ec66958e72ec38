package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type PGRepo struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, password_hash, role, salon_name, manager_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		strings.ToLower(user.Email),
		user.Name,
		nullableString(user.PasswordHash),
		user.Role,
		nullableString(user.SalonName),
		nullableString(user.ManagerID),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

const selectColumns = `
SELECT id, email, name, password_hash, role, salon_name, manager_id, created_at, updated_at
FROM users`

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE email = $1
LIMIT 1`, strings.ToLower(email)))
}

func (r *PGRepo) UpsertByEmail(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, email, name, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (email) DO UPDATE SET
  name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
  updated_at = now()
RETURNING id, email, name, password_hash, role, salon_name, manager_id, created_at, updated_at`
	return scanUser(r.DB.QueryRowContext(ctx, query,
		user.ID,
		strings.ToLower(user.Email),
		user.Name,
		user.Role,
	))
}

func (r *PGRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE users SET password_hash = $2, updated_at = now()
WHERE id = $1`, userID, hash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ManagedIDs(ctx context.Context, managerID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id FROM users
WHERE manager_id = $1
ORDER BY id`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var user User
	var passwordHash, salonName, managerID sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&passwordHash,
		&user.Role,
		&salonName,
		&managerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.PasswordHash = passwordHash.String
	user.SalonName = salonName.String
	user.ManagerID = managerID.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
