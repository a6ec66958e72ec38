package db

import (
	"context"
	"database/sql"
	"errors"
)

// SettleMiss explains why a guarded status update on table touched no rows:
// notFound when id is absent, terminal otherwise. table must be a trusted
// identifier.
func SettleMiss(ctx context.Context, conn *sql.DB, table, id string, notFound, terminal error) error {
	var status string
	err := conn.QueryRowContext(ctx, `SELECT status FROM `+table+` WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return err
	}
	return terminal
}

// RowsAffected returns res.RowsAffected, treating drivers that cannot report
// it as one row.
func RowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 1
	}
	return n
}
