package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

// Apply is the only code path that mutates a balance row. The row is locked
// for the duration of the transaction, so concurrent deltas against the same
// (user, currency) serialize instead of losing updates.
func (r *ledgerRepo) Apply(ctx context.Context, p repo.LedgerApply) (models.Balance, models.Transaction, error) {
	var txnID string

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO balances(user_id, currency, amount) VALUES($1,$2,0)
			 ON CONFLICT (user_id, currency) DO NOTHING`,
			p.UserID, p.Currency,
		); err != nil {
			return err
		}

		var current decimal.Decimal
		if err := tx.QueryRow(ctx,
			`SELECT amount FROM balances WHERE user_id=$1 AND currency=$2 FOR UPDATE`,
			p.UserID, p.Currency,
		).Scan(&current); err != nil {
			return err
		}

		// replayed idempotency key: return the original transaction untouched.
		// The check runs under the row lock, so a concurrent request with the
		// same key has either committed and is found here, or is queued behind
		// the lock and will find ours.
		if p.IdempotencyKey != "" {
			err := tx.QueryRow(ctx,
				`SELECT id FROM transactions WHERE idempotency_key=$1`, p.IdempotencyKey,
			).Scan(&txnID)
			if err == nil {
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}

		next := current.Add(p.Amount)
		if p.Amount.IsNegative() && next.IsNegative() {
			return apperr.ErrInsufficientFunds
		}

		if _, err := tx.Exec(ctx,
			`UPDATE balances SET amount=$3, last_updated_at=now() WHERE user_id=$1 AND currency=$2`,
			p.UserID, p.Currency, next,
		); err != nil {
			return err
		}

		txnID = uuid.NewString()
		var idemKey *string
		if p.IdempotencyKey != "" {
			idemKey = &p.IdempotencyKey
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO transactions(id, user_id, type, amount, currency, status, external_ref, idempotency_key)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			txnID, p.UserID, p.Type, p.Amount, p.Currency, models.TxnCompleted, p.ExternalRef, idemKey,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO outbox(aggregate, key, event, payload) VALUES($1,$2,$3,$4)`,
			models.AggregateTransaction, txnID, string(p.Type), p.DocPayload,
		)
		return err
	})
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}

	// re-read both records after commit; no in-memory projection is trusted
	bal, err := r.Balance(ctx, p.UserID, p.Currency)
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}
	txn, err := (&transactionsRepo{r.pool}).GetByID(ctx, txnID)
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}
	return bal, txn, nil
}

// Void reverses a completed transaction under the same row lock Apply takes.
// The transaction is marked failed, the balance gets its amount back and the
// idempotency key is cleared so the client key is usable again.
func (r *ledgerRepo) Void(ctx context.Context, txnID string) (models.Balance, models.Transaction, error) {
	var (
		userID   string
		currency models.Currency
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var (
			typ    models.TransactionType
			amount decimal.Decimal
			status models.TransactionStatus
		)
		err := tx.QueryRow(ctx,
			`SELECT user_id, type, amount, currency, status FROM transactions WHERE id=$1 FOR UPDATE`,
			txnID,
		).Scan(&userID, &typ, &amount, &currency, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if status == models.TxnFailed {
			return nil
		}
		if status != models.TxnCompleted {
			return apperr.ErrInvalidTransition
		}

		var current decimal.Decimal
		if err := tx.QueryRow(ctx,
			`SELECT amount FROM balances WHERE user_id=$1 AND currency=$2 FOR UPDATE`,
			userID, currency,
		).Scan(&current); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE balances SET amount=$3, last_updated_at=now() WHERE user_id=$1 AND currency=$2`,
			userID, currency, current.Sub(amount),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET status=$2, idempotency_key=NULL WHERE id=$1`,
			txnID, models.TxnFailed,
		); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"user_id":  userID,
			"type":     typ,
			"amount":   amount,
			"currency": currency,
			"status":   models.TxnFailed,
		})
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO outbox(aggregate, key, event, payload) VALUES($1,$2,$3,$4)`,
			models.AggregateTransaction, txnID, models.EventTransactionVoided, payload,
		)
		return err
	})
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}

	bal, err := r.Balance(ctx, userID, currency)
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}
	txn, err := (&transactionsRepo{r.pool}).GetByID(ctx, txnID)
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}
	return bal, txn, nil
}

func (r *ledgerRepo) Balance(ctx context.Context, userID string, c models.Currency) (models.Balance, error) {
	var b models.Balance
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, currency, amount, last_updated_at FROM balances WHERE user_id=$1 AND currency=$2`,
		userID, c,
	).Scan(&b.UserID, &b.Currency, &b.Amount, &b.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ZeroBalance(userID, c), nil
	}
	return b, err
}

func (r *ledgerRepo) Balances(ctx context.Context, userID string) ([]models.Balance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, currency, amount, last_updated_at FROM balances WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.UserID, &b.Currency, &b.Amount, &b.LastUpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) Sum(ctx context.Context, userID string, c models.Currency) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		  WHERE user_id=$1 AND currency=$2 AND status=$3`,
		userID, c, models.TxnCompleted,
	).Scan(&sum)
	return sum, err
}

func (r *ledgerRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
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
