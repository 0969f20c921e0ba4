package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionImports, "IMP-1", []byte(`{"title":"a"}`)))

	body, err := s.Get(ctx, CollectionImports, "IMP-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"a"}`, string(body))

	// put is an upsert
	require.NoError(t, s.Put(ctx, CollectionImports, "IMP-1", []byte(`{"title":"b"}`)))
	body, err = s.Get(ctx, CollectionImports, "IMP-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"b"}`, string(body))

	require.NoError(t, s.Delete(ctx, CollectionImports, "IMP-1"))
	_, err = s.Get(ctx, CollectionImports, "IMP-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete(ctx, CollectionImports, "IMP-1"))
}

func TestCollectionsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionImports, "k", []byte(`{"kind":"import"}`)))
	require.NoError(t, s.Put(ctx, CollectionTransactions, "k", []byte(`{"kind":"txn"}`)))

	docs, err := s.ListCollection(ctx, CollectionImports, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"kind":"import"}`, string(docs[0]))
}

func TestAuditLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := "txn-1"
	require.NoError(t, s.AppendAudit(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &id,
		Action:     "deposit",
		Details:    map[string]any{"amount": "10", "currency": "USD"},
	}))
	require.NoError(t, s.AppendAudit(ctx, models.AuditLog{
		EntityType: "import",
		Action:     "created",
	}))

	logs, err := s.ListAudit(ctx, "transaction", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "deposit", logs[0].Action)
	require.NotNil(t, logs[0].EntityID)
	assert.Equal(t, "txn-1", *logs[0].EntityID)
	assert.Equal(t, "USD", logs[0].Details["currency"])
	assert.NotEmpty(t, logs[0].ID)
	assert.False(t, logs[0].CreatedAt.IsZero())
}
