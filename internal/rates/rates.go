// Package rates serves the exchange-rate table reported by the balance
// overview. Rates are quoted against USD.
package rates

import (
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/shopspring/decimal"
)

type Service struct {
	table map[models.Currency]decimal.Decimal
}

func New() *Service {
	return &Service{table: map[models.Currency]decimal.Decimal{
		models.USD: decimal.NewFromInt(1),
		models.EUR: decimal.RequireFromString("0.92"),
		models.GBP: decimal.RequireFromString("0.79"),
		models.BRL: decimal.RequireFromString("5.43"),
	}}
}

// Table returns the per-currency USD rate for every supported currency.
func (s *Service) Table() map[models.Currency]decimal.Decimal {
	out := make(map[models.Currency]decimal.Decimal, len(s.table))
	for c, r := range s.table {
		out[c] = r
	}
	return out
}

func (s *Service) Set(c models.Currency, rate decimal.Decimal) { s.table[c] = rate }
