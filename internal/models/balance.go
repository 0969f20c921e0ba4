package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the stored amount for one (user, currency) pair. It is a
// materialization of the transaction log; the ledger keeps the two in sync
// under a single locked write path.
type Balance struct {
	UserID        string          `json:"user_id"`
	Currency      Currency        `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// ZeroBalance is the snapshot reported for a currency the user has never
// touched.
func ZeroBalance(userID string, c Currency) Balance {
	return Balance{UserID: userID, Currency: c, Amount: decimal.Zero}
}
