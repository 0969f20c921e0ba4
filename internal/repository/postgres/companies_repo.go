package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
)

type companiesRepo struct{ pool *pgxpool.Pool }

func (r *companiesRepo) Create(ctx context.Context, c models.Company) (models.Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO companies(id, name, tax_id, country) VALUES($1,$2,$3,$4)`,
		c.ID, c.Name, c.TaxID, c.Country,
	)
	if err != nil {
		return models.Company{}, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *companiesRepo) GetByID(ctx context.Context, id string) (models.Company, error) {
	var c models.Company
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, tax_id, country, created_at, updated_at FROM companies WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.TaxID, &c.Country, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Company{}, apperr.ErrNotFound
	}
	return c, err
}
