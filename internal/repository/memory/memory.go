// Package memory holds in-memory repository implementations with the same
// semantics as the postgres ones, used by service tests.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type Repositories struct {
	Users        *UsersRepo
	Companies    *CompaniesRepo
	Ledger       *LedgerRepo
	Transactions *TransactionsRepo
	Imports      *ImportsRepo
	Outbox       *OutboxRepo
}

func NewRepositories() Repositories {
	txns := &TransactionsRepo{byID: map[string]models.Transaction{}}
	outbox := &OutboxRepo{}
	return Repositories{
		Users:        &UsersRepo{byID: map[string]models.User{}},
		Companies:    &CompaniesRepo{byID: map[string]models.Company{}},
		Ledger:       &LedgerRepo{balances: map[balanceKey]models.Balance{}, txns: txns, outbox: outbox},
		Transactions: txns,
		Imports:      &ImportsRepo{byID: map[string]models.Import{}, outbox: outbox},
		Outbox:       outbox,
	}
}

// ---------- users ----------

type UsersRepo struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func (r *UsersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.ErrNotFound
}

func (r *UsersRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

// ---------- companies ----------

type CompaniesRepo struct {
	mu   sync.RWMutex
	byID map[string]models.Company
}

func (r *CompaniesRepo) Create(_ context.Context, c models.Company) (models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.byID[c.ID] = c
	return c, nil
}

func (r *CompaniesRepo) GetByID(_ context.Context, id string) (models.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return models.Company{}, apperr.ErrNotFound
	}
	return c, nil
}

// ---------- ledger ----------

type balanceKey struct {
	userID   string
	currency models.Currency
}

type LedgerRepo struct {
	mu       sync.Mutex
	balances map[balanceKey]models.Balance
	txns     *TransactionsRepo
	outbox   *OutboxRepo
	byIdem   sync.Map // idempotency key -> transaction id
}

func (r *LedgerRepo) Apply(ctx context.Context, p repo.LedgerApply) (models.Balance, models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.IdempotencyKey != "" {
		if v, ok := r.byIdem.Load(p.IdempotencyKey); ok {
			txn, err := r.txns.GetByID(ctx, v.(string))
			if err != nil {
				return models.Balance{}, models.Transaction{}, err
			}
			return r.balances[balanceKey{p.UserID, p.Currency}], txn, nil
		}
	}

	key := balanceKey{p.UserID, p.Currency}
	b, ok := r.balances[key]
	if !ok {
		b = models.ZeroBalance(p.UserID, p.Currency)
	}
	next := b.Amount.Add(p.Amount)
	if p.Amount.IsNegative() && next.IsNegative() {
		return models.Balance{}, models.Transaction{}, apperr.ErrInsufficientFunds
	}
	b.Amount = next
	b.LastUpdatedAt = time.Now()
	r.balances[key] = b

	txn := models.Transaction{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Type:        p.Type,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      models.TxnCompleted,
		ExternalRef: p.ExternalRef,
		CreatedAt:   time.Now(),
	}
	if p.IdempotencyKey != "" {
		k := p.IdempotencyKey
		txn.IdempotencyKey = &k
		r.byIdem.Store(k, txn.ID)
	}
	r.txns.put(txn)
	r.outbox.Append(models.AggregateTransaction, txn.ID, string(p.Type), p.DocPayload)
	return b, txn, nil
}

func (r *LedgerRepo) Void(ctx context.Context, txnID string) (models.Balance, models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, err := r.txns.GetByID(ctx, txnID)
	if err != nil {
		return models.Balance{}, models.Transaction{}, err
	}
	key := balanceKey{txn.UserID, txn.Currency}
	if txn.Status == models.TxnFailed {
		return r.balances[key], txn, nil
	}
	if txn.Status != models.TxnCompleted {
		return models.Balance{}, models.Transaction{}, apperr.ErrInvalidTransition
	}

	b := r.balances[key]
	b.Amount = b.Amount.Sub(txn.Amount)
	b.LastUpdatedAt = time.Now()
	r.balances[key] = b

	if txn.IdempotencyKey != nil {
		r.byIdem.Delete(*txn.IdempotencyKey)
	}
	txn.Status = models.TxnFailed
	txn.IdempotencyKey = nil
	r.txns.update(txn)
	r.outbox.AppendJSON(models.AggregateTransaction, txn.ID, models.EventTransactionVoided, map[string]any{
		"user_id":  txn.UserID,
		"type":     txn.Type,
		"amount":   txn.Amount,
		"currency": txn.Currency,
		"status":   models.TxnFailed,
	})
	return b, txn, nil
}

func (r *LedgerRepo) Balance(_ context.Context, userID string, c models.Currency) (models.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[balanceKey{userID, c}]; ok {
		return b, nil
	}
	return models.ZeroBalance(userID, c), nil
}

func (r *LedgerRepo) Balances(_ context.Context, userID string) ([]models.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Balance
	for k, b := range r.balances {
		if k.userID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *LedgerRepo) Sum(_ context.Context, userID string, c models.Currency) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.txns.snapshot() {
		if t.UserID == userID && t.Currency == c && t.Status == models.TxnCompleted {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// ---------- transactions ----------

type TransactionsRepo struct {
	mu   sync.RWMutex
	byID map[string]models.Transaction
	log  []models.Transaction
}

func (r *TransactionsRepo) put(t models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
	r.log = append(r.log, t)
}

func (r *TransactionsRepo) update(t models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
	for i := range r.log {
		if r.log[i].ID == t.ID {
			r.log[i] = t
		}
	}
}

func (r *TransactionsRepo) snapshot() []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Transaction, len(r.log))
	copy(out, r.log)
	return out
}

func (r *TransactionsRepo) GetByID(_ context.Context, id string) (models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return models.Transaction{}, apperr.ErrNotFound
	}
	return t, nil
}

func (r *TransactionsRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	all := r.snapshot()
	var mine []models.Transaction
	for i := len(all) - 1; i >= 0; i-- { // newest first
		if all[i].UserID == userID {
			mine = append(mine, all[i])
		}
	}
	if offset >= len(mine) {
		return nil, nil
	}
	mine = mine[offset:]
	if limit < len(mine) {
		mine = mine[:limit]
	}
	return mine, nil
}

func (r *TransactionsRepo) ListSince(_ context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range r.snapshot() {
		if t.UserID == userID && !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ---------- imports ----------

type ImportsRepo struct {
	mu     sync.RWMutex
	byID   map[string]models.Import
	outbox *OutboxRepo
}

func (r *ImportsRepo) Create(_ context.Context, imp models.Import) (models.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp.CreatedAt = time.Now()
	imp.UpdatedAt = imp.CreatedAt
	r.byID[imp.ID] = imp
	r.outbox.AppendJSON(models.AggregateImport, imp.ID, models.EventImportCreated, imp)
	return imp, nil
}

func (r *ImportsRepo) GetByID(_ context.Context, id string) (models.Import, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	imp, ok := r.byID[id]
	if !ok {
		return models.Import{}, apperr.ErrNotFound
	}
	return imp, nil
}

func (r *ImportsRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]models.Import, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Import
	for _, imp := range r.byID {
		if imp.OwnerID == ownerID {
			out = append(out, imp)
		}
	}
	// newest first, matching the postgres ordering; ties fall back to the ID
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *ImportsRepo) UpdateStatus(_ context.Context, id string, status models.ImportStatus, progress int) (models.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.byID[id]
	if !ok {
		return models.Import{}, apperr.ErrNotFound
	}
	imp.Status = status
	imp.Progress = progress
	imp.UpdatedAt = time.Now()
	r.byID[id] = imp
	r.outbox.AppendJSON(models.AggregateImport, id, models.EventImportUpdated, imp)
	return imp, nil
}

func (r *ImportsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	r.outbox.AppendJSON(models.AggregateImport, id, models.EventImportDeleted, map[string]string{"id": id})
	return nil
}

// ---------- outbox ----------

type OutboxRepo struct {
	mu      sync.Mutex
	entries []models.OutboxEntry
	nextID  int64
}

func (r *OutboxRepo) Append(aggregate, key, event string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, models.OutboxEntry{
		ID: r.nextID, Aggregate: aggregate, Key: key, Event: event,
		Payload: payload, CreatedAt: time.Now(),
	})
}

func (r *OutboxRepo) AppendJSON(aggregate, key, event string, payload any) {
	b, _ := json.Marshal(payload)
	r.Append(aggregate, key, event, b)
}

func (r *OutboxRepo) Unprocessed(_ context.Context, limit int) ([]models.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OutboxEntry
	for _, e := range r.entries {
		if e.ProcessedAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkProcessed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			now := time.Now()
			r.entries[i].ProcessedAt = &now
		}
	}
	return nil
}

func (r *OutboxRepo) PendingCount(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.ProcessedAt == nil {
			n++
		}
	}
	return n, nil
}
