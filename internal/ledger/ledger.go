// Package ledger is the authoritative write path for balances. All
// deposit/withdrawal/refund traffic funnels through Apply; the balance row is
// a materialization of the transaction log and Reconcile can verify the two
// agree.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/metrics"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/rates"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// Auditor records ledger activity in the secondary store; a failed audit
// write never fails the operation it records.
type Auditor interface {
	AppendAudit(ctx context.Context, l models.AuditLog) error
}

type Service struct {
	ledger repo.Ledger
	txns   repo.Transactions
	users  repo.Users
	rates  *rates.Service
	audit  Auditor
}

func New(l repo.Ledger, t repo.Transactions, u repo.Users, r *rates.Service, a Auditor) *Service {
	return &Service{ledger: l, txns: t, users: u, rates: r, audit: a}
}

// Meta is request context mirrored into the transaction document.
type Meta struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Device    string `json:"device,omitempty"`
}

// ApplyInput carries a signed amount: positive for deposit/refund, negative
// for withdrawal.
type ApplyInput struct {
	UserID         string
	Currency       models.Currency
	Amount         decimal.Decimal
	Type           models.TransactionType
	ExternalRef    string
	IdempotencyKey string
	Meta           Meta
}

type ApplyResult struct {
	Balance     models.Balance     `json:"balance"`
	Transaction models.Transaction `json:"transaction"`
}

func (s *Service) Apply(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	if !in.Currency.Valid() {
		return ApplyResult{}, apperr.ErrInvalidCurrency
	}
	if in.Amount.IsZero() {
		return ApplyResult{}, apperr.ErrInvalidAmount
	}
	if in.Type.Credits() != in.Amount.IsPositive() {
		return ApplyResult{}, apperr.Validationf("amount sign does not match %s", in.Type)
	}
	if ok, err := s.users.Exists(ctx, in.UserID); err != nil {
		return ApplyResult{}, err
	} else if !ok {
		return ApplyResult{}, apperr.ErrNotFound
	}

	var extRef *string
	if in.ExternalRef != "" {
		extRef = &in.ExternalRef
	}
	idemKey := in.IdempotencyKey
	if idemKey == "" {
		// no caller key: make the write unique rather than dedupable
		idemKey = uuid.NewString()
	}

	payload, err := json.Marshal(struct {
		UserID      string                 `json:"user_id"`
		Type        models.TransactionType `json:"type"`
		Amount      decimal.Decimal        `json:"amount"`
		Currency    models.Currency        `json:"currency"`
		ExternalRef string                 `json:"external_ref,omitempty"`
		Meta        Meta                   `json:"meta"`
	}{in.UserID, in.Type, in.Amount, in.Currency, in.ExternalRef, in.Meta})
	if err != nil {
		return ApplyResult{}, err
	}

	bal, txn, err := s.ledger.Apply(ctx, repo.LedgerApply{
		UserID:         in.UserID,
		Currency:       in.Currency,
		Amount:         in.Amount,
		Type:           in.Type,
		ExternalRef:    extRef,
		IdempotencyKey: idemKey,
		DocPayload:     payload,
	})
	if err != nil {
		metrics.TransactionsFailed.Inc()
		return ApplyResult{}, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(in.Type)).Inc()

	if err := s.audit.AppendAudit(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &txn.ID,
		Action:     string(in.Type),
		Details:    map[string]any{"amount": in.Amount.String(), "currency": in.Currency},
	}); err != nil {
		slog.Warn("audit write failed", "txn", txn.ID, "err", err)
	}

	return ApplyResult{Balance: bal, Transaction: txn}, nil
}

// Void reverses a completed transaction: the row is marked failed, its
// balance effect is undone and its idempotency key is released, so the same
// client key can re-attempt the operation with a fresh transaction.
func (s *Service) Void(ctx context.Context, txnID string) (ApplyResult, error) {
	bal, txn, err := s.ledger.Void(ctx, txnID)
	if err != nil {
		return ApplyResult{}, err
	}
	metrics.TransactionsVoided.Inc()

	if err := s.audit.AppendAudit(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &txn.ID,
		Action:     "void",
		Details:    map[string]any{"amount": txn.Amount.String(), "currency": txn.Currency},
	}); err != nil {
		slog.Warn("audit write failed", "txn", txn.ID, "err", err)
	}

	return ApplyResult{Balance: bal, Transaction: txn}, nil
}

// Reconciliation compares the stored balance row with the fold over the
// transaction log for one (user, currency).
type Reconciliation struct {
	Stored     decimal.Decimal `json:"stored"`
	Derived    decimal.Decimal `json:"derived"`
	Consistent bool            `json:"consistent"`
}

func (s *Service) Reconcile(ctx context.Context, userID string, c models.Currency) (Reconciliation, error) {
	if !c.Valid() {
		return Reconciliation{}, apperr.ErrInvalidCurrency
	}
	bal, err := s.ledger.Balance(ctx, userID, c)
	if err != nil {
		return Reconciliation{}, err
	}
	derived, err := s.ledger.Sum(ctx, userID, c)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{
		Stored:     bal.Amount,
		Derived:    derived,
		Consistent: bal.Amount.Equal(derived),
	}, nil
}
