package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/gateway"
	"github.com/redirex/shipglobal-backend/internal/ledger"
	"github.com/redirex/shipglobal-backend/internal/metrics"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the processor surface the service needs; satisfied by
// gateway.Client and by test fakes.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, userID string, amount decimal.Decimal, c models.Currency, idemKey string) (*gateway.PaymentIntent, error)
	CreatePayout(ctx context.Context, dest string, amount decimal.Decimal, c models.Currency, idemKey string) (*gateway.Payout, error)
	CreateRefund(ctx context.Context, paymentRef string, amount decimal.Decimal, idemKey string) (*gateway.Refund, error)
}

type PaymentService struct {
	gw     PaymentGateway
	ledger *ledger.Service
}

func NewPaymentService(gw PaymentGateway, l *ledger.Service) *PaymentService {
	return &PaymentService{gw: gw, ledger: l}
}

func (s *PaymentService) CreateIntent(ctx context.Context, userID string, amount decimal.Decimal, c models.Currency, idemKey string) (*gateway.PaymentIntent, error) {
	if !c.Valid() {
		return nil, apperr.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if idemKey == "" {
		idemKey = gateway.IdempotencyKey("intent", userID, uuid.NewString())
	}
	intent, err := s.gw.CreatePaymentIntent(ctx, userID, amount, c, idemKey)
	s.observe("intent", err)
	return intent, err
}

func (s *PaymentService) CreatePayout(ctx context.Context, userID, destination string, amount decimal.Decimal, c models.Currency, idemKey string) (*gateway.Payout, error) {
	if !c.Valid() {
		return nil, apperr.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if destination == "" {
		return nil, apperr.Validationf("destination account required")
	}
	if idemKey == "" {
		idemKey = gateway.IdempotencyKey("payout", userID, uuid.NewString())
	}
	payout, err := s.gw.CreatePayout(ctx, destination, amount, c, idemKey)
	s.observe("payout", err)
	return payout, err
}

func (s *PaymentService) CreateRefund(ctx context.Context, paymentRef string, amount decimal.Decimal, idemKey string) (*gateway.Refund, error) {
	if paymentRef == "" {
		return nil, apperr.Validationf("payment reference required")
	}
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if idemKey == "" {
		idemKey = gateway.IdempotencyKey("refund", paymentRef, uuid.NewString())
	}
	refund, err := s.gw.CreateRefund(ctx, paymentRef, amount, idemKey)
	s.observe("refund", err)
	return refund, err
}

// Withdraw debits the ledger first so funds are reserved, then requests the
// payout under a key derived from the debit transaction. A definitive
// rejection cannot have moved money, so the debit is voided and the client
// key is released for a clean retry. An ambiguous failure (timeout, 5xx)
// keeps the debit: a retry with the same client key replays it and reuses
// the same payout key, and the processor deduplicates.
func (s *PaymentService) Withdraw(ctx context.Context, userID, destination string, amount decimal.Decimal, c models.Currency, idemKey string, meta ledger.Meta) (ledger.ApplyResult, *gateway.Payout, error) {
	if destination == "" {
		return ledger.ApplyResult{}, nil, apperr.Validationf("destination account required")
	}
	if !amount.IsPositive() {
		return ledger.ApplyResult{}, nil, apperr.ErrInvalidAmount
	}

	res, err := s.ledger.Apply(ctx, ledger.ApplyInput{
		UserID:         userID,
		Currency:       c,
		Amount:         amount.Neg(),
		Type:           models.TxnWithdrawal,
		IdempotencyKey: idemKey,
		Meta:           meta,
	})
	if err != nil {
		return ledger.ApplyResult{}, nil, err
	}

	payout, err := s.gw.CreatePayout(ctx, destination, amount, c,
		gateway.IdempotencyKey("payout", userID, res.Transaction.ID))
	s.observe("payout", err)
	if err != nil {
		if gateway.Rejected(err) {
			if _, vErr := s.ledger.Void(ctx, res.Transaction.ID); vErr != nil {
				// needs operator attention; the debit stands without a payout
				slog.Error("void after rejected payout failed", "txn", res.Transaction.ID, "err", vErr)
			}
		}
		return ledger.ApplyResult{}, nil, err
	}
	return res, payout, nil
}

func (s *PaymentService) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GatewayRequests.WithLabelValues(op, status).Inc()
}
