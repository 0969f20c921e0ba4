package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	assert.NoError(t, Collect(nil, nil))
	assert.NoError(t, Collect(
		Required("title", "hello"),
		Currency("currency", "USD"),
		PositiveAmount("amount", decimal.NewFromInt(5)),
	))

	err := Collect(
		Required("title", "   "),
		Currency("currency", "XYZ"),
		PositiveAmount("amount", decimal.Zero),
	)
	require.Error(t, err)

	var errs Errs
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
	assert.Equal(t, "title", errs[0].Field)
	assert.Contains(t, err.Error(), "currency: unsupported currency")
	assert.Contains(t, err.Error(), "amount: must be > 0")
}

func TestCurrencyAcceptsAllSupported(t *testing.T) {
	for _, c := range []string{"USD", "EUR", "GBP", "BRL"} {
		assert.Nil(t, Currency("currency", c), c)
	}
	assert.NotNil(t, Currency("currency", "usd"), "currencies are upper case on the wire")
}
