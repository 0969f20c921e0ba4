package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
)

type importsRepo struct{ pool *pgxpool.Pool }

const importCols = `id, owner_id, owner_type, title, origin, destination, status, progress, eta, created_at, updated_at`

// Writes enqueue an outbox entry in the same transaction so the document
// store copy is eventually consistent with the row.
func (r *importsRepo) Create(ctx context.Context, imp models.Import) (models.Import, error) {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO imports(id, owner_id, owner_type, title, origin, destination, status, progress, eta)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			imp.ID, imp.OwnerID, imp.OwnerType, imp.Title, imp.Origin, imp.Destination, imp.Status, imp.Progress, imp.ETA,
		); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, imp.ID, models.EventImportCreated, imp)
	})
	if err != nil {
		return models.Import{}, err
	}
	return r.GetByID(ctx, imp.ID)
}

func (r *importsRepo) GetByID(ctx context.Context, id string) (models.Import, error) {
	var imp models.Import
	err := r.pool.QueryRow(ctx,
		`SELECT `+importCols+` FROM imports WHERE id=$1`, id,
	).Scan(&imp.ID, &imp.OwnerID, &imp.OwnerType, &imp.Title, &imp.Origin, &imp.Destination,
		&imp.Status, &imp.Progress, &imp.ETA, &imp.CreatedAt, &imp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Import{}, apperr.ErrNotFound
	}
	return imp, err
}

func (r *importsRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Import, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+importCols+` FROM imports
		  WHERE owner_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Import
	for rows.Next() {
		var imp models.Import
		if err := rows.Scan(&imp.ID, &imp.OwnerID, &imp.OwnerType, &imp.Title, &imp.Origin, &imp.Destination,
			&imp.Status, &imp.Progress, &imp.ETA, &imp.CreatedAt, &imp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (r *importsRepo) UpdateStatus(ctx context.Context, id string, status models.ImportStatus, progress int) (models.Import, error) {
	var updated models.Import
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE imports SET status=$2, progress=$3, updated_at=now() WHERE id=$1
			 RETURNING `+importCols,
			id, status, progress,
		).Scan(&updated.ID, &updated.OwnerID, &updated.OwnerType, &updated.Title, &updated.Origin, &updated.Destination,
			&updated.Status, &updated.Progress, &updated.ETA, &updated.CreatedAt, &updated.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return r.enqueue(ctx, tx, id, models.EventImportUpdated, updated)
	})
	return updated, err
}

func (r *importsRepo) Delete(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM imports WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		// tombstone so the relay removes the document copy
		return r.enqueue(ctx, tx, id, models.EventImportDeleted, map[string]string{"id": id})
	})
}

func (r *importsRepo) enqueue(ctx context.Context, tx pgx.Tx, key, event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO outbox(aggregate, key, event, payload) VALUES($1,$2,$3,$4)`,
		models.AggregateImport, key, event, b,
	)
	return err
}

func (r *importsRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
