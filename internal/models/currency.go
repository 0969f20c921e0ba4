package models

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	BRL Currency = "BRL"
)

// SupportedCurrencies is the fixed set a balance can be held in; order is
// the presentation order of the balance overview.
var SupportedCurrencies = []Currency{USD, EUR, GBP, BRL}

func (c Currency) Valid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}
