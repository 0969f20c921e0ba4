package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnDeposit    TransactionType = "deposit"
	TxnWithdrawal TransactionType = "withdrawal"
	TxnRefund     TransactionType = "refund"
	TxnTransfer   TransactionType = "transfer"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

// Transaction is an append-only record of a balance-affecting event. Amount
// is signed: positive for deposit/refund, negative for withdrawal.
type Transaction struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Type           TransactionType   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       Currency          `json:"currency"`
	Status         TransactionStatus `json:"status"`
	ExternalRef    *string           `json:"external_ref,omitempty"`
	IdempotencyKey *string           `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Credits reports whether the type increases the balance.
func (t TransactionType) Credits() bool {
	return t == TxnDeposit || t == TxnRefund
}
