package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redirex/shipglobal-backend/internal/models"
)

type outboxRepo struct{ pool *pgxpool.Pool }

func (r *outboxRepo) Unprocessed(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, aggregate, key, event, payload, created_at, processed_at
		   FROM outbox
		  WHERE processed_at IS NULL
		  ORDER BY id
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		if err := rows.Scan(&e.ID, &e.Aggregate, &e.Key, &e.Event, &e.Payload, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox SET processed_at=now() WHERE id=$1`, id)
	return err
}

func (r *outboxRepo) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL`).Scan(&n)
	return n, err
}
