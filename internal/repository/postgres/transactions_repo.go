package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnCols = `id, user_id, type, amount, currency, status, external_ref, idempotency_key, created_at`

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	var t models.Transaction
	err := r.pool.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id=$1`, id,
	).Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Status, &t.ExternalRef, &t.IdempotencyKey, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, apperr.ErrNotFound
	}
	return t, err
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnCols+` FROM transactions
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTxns(rows)
}

func (r *transactionsRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnCols+` FROM transactions
		  WHERE user_id=$1 AND created_at >= $2
		  ORDER BY created_at ASC`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTxns(rows)
}

func scanTxns(rows pgx.Rows) ([]models.Transaction, error) {
	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Status, &t.ExternalRef, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
