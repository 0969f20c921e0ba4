package repository

import (
	"context"
	"time"

	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/shopspring/decimal"
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type Companies interface {
	Create(ctx context.Context, c models.Company) (models.Company, error)
	GetByID(ctx context.Context, id string) (models.Company, error)
}

// LedgerApply is the single write path into the balance ledger. Amount is
// signed; DocPayload is the denormalized document mirrored through the
// outbox.
type LedgerApply struct {
	UserID         string
	Currency       models.Currency
	Amount         decimal.Decimal
	Type           models.TransactionType
	ExternalRef    *string
	IdempotencyKey string
	DocPayload     []byte
}

// Ledger owns the balance row and the transaction log. Apply runs as one
// atomic unit: lock the (user, currency) row, verify funds, update the
// amount, append the transaction and the outbox entry. A replayed
// idempotency key returns the original transaction without reapplying.
type Ledger interface {
	Apply(ctx context.Context, p LedgerApply) (models.Balance, models.Transaction, error)
	// Void marks a completed transaction failed, reverses its balance effect
	// and releases its idempotency key so the same client key can re-attempt
	// the operation. Voiding an already-voided transaction is a no-op.
	Void(ctx context.Context, txnID string) (models.Balance, models.Transaction, error)
	Balance(ctx context.Context, userID string, c models.Currency) (models.Balance, error)
	Balances(ctx context.Context, userID string) ([]models.Balance, error)
	// Sum folds the signed transaction amounts for reconciliation against
	// the stored balance row.
	Sum(ctx context.Context, userID string, c models.Currency) (decimal.Decimal, error)
}

type Transactions interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error)
}

type Imports interface {
	Create(ctx context.Context, imp models.Import) (models.Import, error)
	GetByID(ctx context.Context, id string) (models.Import, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Import, error)
	UpdateStatus(ctx context.Context, id string, status models.ImportStatus, progress int) (models.Import, error)
	Delete(ctx context.Context, id string) error
}

type Outbox interface {
	Unprocessed(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	MarkProcessed(ctx context.Context, id int64) error
	PendingCount(ctx context.Context) (int64, error)
}
