package catalog

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

func (r *PGRepo) Create(ctx context.Context, p Product) error {
	objections, err := db.MarshalJSONB(objectionsOrEmpty(p.Objections))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO products (id, salon_id, name, category, characteristics, advantages, benefits, price,
                      target_audience, objections, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		p.ID,
		p.SalonID,
		p.Name,
		nullString(p.Category),
		p.Characteristics,
		p.Advantages,
		p.Benefits,
		nullFloat(p.Price),
		nullString(p.TargetAudience),
		objections,
		p.IsActive,
		p.CreatedAt,
	)
	return err
}

const selectColumns = `
SELECT id, salon_id, name, category, characteristics, advantages, benefits, price,
       target_audience, objections, is_active, created_at, updated_at
FROM products`

func (r *PGRepo) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PGRepo) ListBySalon(ctx context.Context, salonID string, activeOnly bool) ([]Product, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE salon_id = $1 AND (NOT $2 OR is_active)
ORDER BY name ASC`, salonID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, p Product) error {
	objections, err := db.MarshalJSONB(objectionsOrEmpty(p.Objections))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE products
SET name = $3, category = $4, characteristics = $5, advantages = $6, benefits = $7, price = $8,
    target_audience = $9, objections = $10, is_active = $11, updated_at = now()
WHERE id = $1 AND salon_id = $2`,
		p.ID,
		p.SalonID,
		p.Name,
		nullString(p.Category),
		p.Characteristics,
		p.Advantages,
		p.Benefits,
		nullFloat(p.Price),
		nullString(p.TargetAudience),
		objections,
		p.IsActive,
	)
	if err != nil {
		return err
	}
	if db.RowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, salonID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND salon_id = $2`, id, salonID)
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

func scanProduct(row scanner) (Product, error) {
	var p Product
	var category, audience, objections sql.NullString
	var price sql.NullFloat64
	if err := row.Scan(
		&p.ID,
		&p.SalonID,
		&p.Name,
		&category,
		&p.Characteristics,
		&p.Advantages,
		&p.Benefits,
		&price,
		&audience,
		&objections,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Product{}, err
	}
	p.Category = category.String
	p.TargetAudience = audience.String
	if price.Valid {
		p.Price = &price.Float64
	}
	if err := db.UnmarshalJSONB(objections, &p.Objections); err != nil {
		return Product{}, err
	}
	p.Objections = objectionsOrEmpty(p.Objections)
	return p, nil
}

func objectionsOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
