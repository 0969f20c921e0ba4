package ledger

import (
	"context"
	"time"

	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/shopspring/decimal"
)

const (
	overviewTxnLimit = 20
	historyDays      = 30
)

type HistoryPoint struct {
	Date   string          `json:"date"` // YYYY-MM-DD
	Amount decimal.Decimal `json:"amount"`
}

// Overview is the dashboard payload: every supported currency (unseen ones
// zero), the rate table, recent transactions and a 30-day per-currency
// balance series folded from the transaction log.
type Overview struct {
	Balances       []models.Balance                    `json:"balances"`
	ExchangeRates  map[models.Currency]decimal.Decimal `json:"exchangeRates"`
	Transactions   []models.Transaction                `json:"transactions"`
	HistoricalData map[models.Currency][]HistoryPoint  `json:"historicalData"`
}

func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	stored, err := s.ledger.Balances(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	byCurrency := make(map[models.Currency]models.Balance, len(stored))
	for _, b := range stored {
		byCurrency[b.Currency] = b
	}
	balances := make([]models.Balance, 0, len(models.SupportedCurrencies))
	for _, c := range models.SupportedCurrencies {
		if b, ok := byCurrency[c]; ok {
			balances = append(balances, b)
		} else {
			balances = append(balances, models.ZeroBalance(userID, c))
		}
	}

	recent, err := s.txns.ListByUser(ctx, userID, overviewTxnLimit, 0)
	if err != nil {
		return Overview{}, err
	}

	since := time.Now().AddDate(0, 0, -historyDays)
	window, err := s.txns.ListSince(ctx, userID, since)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		Balances:       balances,
		ExchangeRates:  s.rates.Table(),
		Transactions:   recent,
		HistoricalData: history(balances, window, time.Now()),
	}, nil
}

// history walks backward from the current balance, peeling off each day's
// net delta to produce an end-of-day series.
func history(current []models.Balance, window []models.Transaction, now time.Time) map[models.Currency][]HistoryPoint {
	type dayKey struct {
		currency models.Currency
		date     string
	}
	deltas := map[dayKey]decimal.Decimal{}
	for _, t := range window {
		if t.Status != models.TxnCompleted {
			continue
		}
		k := dayKey{t.Currency, t.CreatedAt.Format("2006-01-02")}
		deltas[k] = deltas[k].Add(t.Amount)
	}

	out := make(map[models.Currency][]HistoryPoint, len(current))
	for _, b := range current {
		running := b.Amount
		points := make([]HistoryPoint, historyDays)
		for i := 0; i < historyDays; i++ {
			day := now.AddDate(0, 0, -i)
			date := day.Format("2006-01-02")
			points[historyDays-1-i] = HistoryPoint{Date: date, Amount: running}
			running = running.Sub(deltas[dayKey{b.Currency, date}])
		}
		out[b.Currency] = points
	}
	return out
}
