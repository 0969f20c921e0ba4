package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/rates"
	"github.com/redirex/shipglobal-backend/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopAuditor struct{}

func (noopAuditor) AppendAudit(context.Context, models.AuditLog) error { return nil }

func newTestService(t *testing.T) (*Service, memory.Repositories, string) {
	t.Helper()
	repos := memory.NewRepositories()
	u, err := repos.Users.Create(context.Background(), models.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	svc := New(repos.Ledger, repos.Transactions, repos.Users, rates.New(), noopAuditor{})
	return svc, repos, u.ID
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyDepositToFreshBalance(t *testing.T) {
	svc, _, uid := newTestService(t)

	res, err := svc.Apply(context.Background(), ApplyInput{
		UserID: uid, Currency: models.USD, Amount: dec("125.50"), Type: models.TxnDeposit,
	})
	require.NoError(t, err)

	assert.True(t, res.Balance.Amount.Equal(dec("125.50")), "balance should equal the first deposit")
	assert.Equal(t, models.TxnDeposit, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(dec("125.50")))
	assert.Equal(t, models.TxnCompleted, res.Transaction.Status)
}

func TestApplyWithdrawal(t *testing.T) {
	svc, _, uid := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.EUR, Amount: dec("100"), Type: models.TxnDeposit})
	require.NoError(t, err)

	res, err := svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.EUR, Amount: dec("-40"), Type: models.TxnWithdrawal})
	require.NoError(t, err)
	assert.True(t, res.Balance.Amount.Equal(dec("60")))

	// overdraw fails and leaves the balance unchanged
	_, err = svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.EUR, Amount: dec("-100"), Type: models.TxnWithdrawal})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	bal, err := svc.ledger.Balance(ctx, uid, models.EUR)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(dec("60")))
}

func TestApplyValidation(t *testing.T) {
	svc, _, uid := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ApplyInput
		want error
	}{
		{"unknown currency", ApplyInput{UserID: uid, Currency: "XAU", Amount: dec("1"), Type: models.TxnDeposit}, apperr.ErrInvalidCurrency},
		{"zero amount", ApplyInput{UserID: uid, Currency: models.USD, Amount: decimal.Zero, Type: models.TxnDeposit}, apperr.ErrInvalidAmount},
		{"unknown user", ApplyInput{UserID: "missing", Currency: models.USD, Amount: dec("1"), Type: models.TxnDeposit}, apperr.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// sign must match the type
	_, err := svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.USD, Amount: dec("-5"), Type: models.TxnDeposit})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.USD, Amount: dec("5"), Type: models.TxnWithdrawal})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestApplyEmitsExactlyOneTransaction(t *testing.T) {
	svc, repos, uid := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.USD, Amount: dec("10"), Type: models.TxnDeposit})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.USD, Amount: dec("-3"), Type: models.TxnWithdrawal})
	require.NoError(t, err)

	txns, err := repos.Transactions.ListByUser(ctx, uid, 100, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	// newest first
	assert.Equal(t, models.TxnWithdrawal, txns[0].Type)
	assert.Equal(t, models.TxnDeposit, txns[1].Type)
}

func TestApplyIdempotencyReplay(t *testing.T) {
	svc, _, uid := newTestService(t)
	ctx := context.Background()

	in := ApplyInput{
		UserID: uid, Currency: models.USD, Amount: dec("50"),
		Type: models.TxnDeposit, IdempotencyKey: "client-key-1",
	}
	first, err := svc.Apply(ctx, in)
	require.NoError(t, err)

	second, err := svc.Apply(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.Transaction.ID, second.Transaction.ID, "replay must return the original transaction")
	assert.True(t, second.Balance.Amount.Equal(dec("50")), "replay must not reapply the delta")
}

func TestConcurrentRepliesWithSameKeyApplyOnce(t *testing.T) {
	svc, repos, uid := newTestService(t)
	ctx := context.Background()

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Apply(ctx, ApplyInput{
				UserID: uid, Currency: models.USD, Amount: dec("25"),
				Type: models.TxnDeposit, IdempotencyKey: "dup-key-1",
			})
			// every duplicate must succeed, none may surface a conflict
			assert.NoError(t, err)
			ids[i] = res.Transaction.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "all duplicates must resolve to one transaction")
	}
	bal, err := svc.ledger.Balance(ctx, uid, models.USD)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(dec("25")))

	txns, err := repos.Transactions.ListByUser(ctx, uid, 100, 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestVoidRestoresBalanceAndReleasesKey(t *testing.T) {
	svc, repos, uid := newTestService(t)
	ctx := context.Background()

	res, err := svc.Apply(ctx, ApplyInput{
		UserID: uid, Currency: models.USD, Amount: dec("80"),
		Type: models.TxnDeposit, IdempotencyKey: "dep-key-1",
	})
	require.NoError(t, err)

	voided, err := svc.Void(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxnFailed, voided.Transaction.Status)
	assert.True(t, voided.Balance.Amount.Equal(decimal.Zero))

	// voiding twice is a no-op
	again, err := svc.Void(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Amount.Equal(decimal.Zero))

	// balance and transaction log still agree
	rec, err := svc.Reconcile(ctx, uid, models.USD)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)

	// the key is free for a fresh write
	redo, err := svc.Apply(ctx, ApplyInput{
		UserID: uid, Currency: models.USD, Amount: dec("80"),
		Type: models.TxnDeposit, IdempotencyKey: "dep-key-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, res.Transaction.ID, redo.Transaction.ID)
	assert.True(t, redo.Balance.Amount.Equal(dec("80")))

	txns, err := repos.Transactions.ListByUser(ctx, uid, 100, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	_, err = svc.Void(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentDepositsDoNotLoseUpdates(t *testing.T) {
	svc, _, uid := newTestService(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, ApplyInput{
				UserID: uid, Currency: models.USD, Amount: dec("4"), Type: models.TxnDeposit,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := svc.ledger.Balance(ctx, uid, models.USD)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(dec("100")), "got %s, want 100", bal.Amount)
}

func TestReconcile(t *testing.T) {
	svc, _, uid := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.GBP, Amount: dec("30"), Type: models.TxnDeposit})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, ApplyInput{UserID: uid, Currency: models.GBP, Amount: dec("-12.25"), Type: models.TxnWithdrawal})
	require.NoError(t, err)

	rec, err := svc.Reconcile(ctx, uid, models.GBP)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.Stored.Equal(dec("17.75")))
	assert.True(t, rec.Derived.Equal(dec("17.75")))
}
