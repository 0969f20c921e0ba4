package outbox

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/docstore"
	"github.com/redirex/shipglobal-backend/internal/events"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/repository/memory"
	"github.com/redirex/shipglobal-backend/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	subjects []string
}

func (p *capturePublisher) Publish(subject string, _ []byte) error {
	p.subjects = append(p.subjects, subject)
	return nil
}
func (p *capturePublisher) Close() {}

func newTestRelay(t *testing.T) (*Relay, *memory.OutboxRepo, *docstore.Store, *capturePublisher) {
	t.Helper()
	docs, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	outbox := &memory.OutboxRepo{}
	pub := &capturePublisher{}
	wp := worker.NewPool(1)
	t.Cleanup(wp.Stop)
	return NewRelay(outbox, docs, pub, wp, 10*time.Millisecond, 16), outbox, docs, pub
}

func TestDrainProjectsTransactionDocument(t *testing.T) {
	relay, outbox, docs, pub := newTestRelay(t)
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]any{"user_id": "u1", "amount": "10"})
	outbox.Append(models.AggregateTransaction, "txn-1", "deposit", payload)

	relay.Drain(ctx)

	body, err := docs.Get(ctx, docstore.CollectionTransactions, "txn-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(body))

	assert.Equal(t, []string{"transactions.deposit"}, pub.subjects)

	n, err := outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainAppliesImportLifecycle(t *testing.T) {
	relay, outbox, docs, _ := newTestRelay(t)
	ctx := context.Background()

	doc, _ := json.Marshal(map[string]any{"id": "IMP-1", "title": "batch"})
	outbox.Append(models.AggregateImport, "IMP-1", models.EventImportCreated, doc)
	relay.Drain(ctx)

	_, err := docs.Get(ctx, docstore.CollectionImports, "IMP-1")
	require.NoError(t, err)

	outbox.Append(models.AggregateImport, "IMP-1", models.EventImportDeleted, []byte(`{"id":"IMP-1"}`))
	relay.Drain(ctx)

	_, err = docs.Get(ctx, docstore.CollectionImports, "IMP-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDrainKeepsOrderAcrossEntries(t *testing.T) {
	relay, outbox, docs, pub := newTestRelay(t)
	ctx := context.Background()

	outbox.Append(models.AggregateImport, "IMP-2", models.EventImportCreated, []byte(`{"v":1}`))
	outbox.Append(models.AggregateImport, "IMP-2", models.EventImportUpdated, []byte(`{"v":2}`))
	relay.Drain(ctx)

	body, err := docs.Get(ctx, docstore.CollectionImports, "IMP-2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(body), "the later write wins")
	assert.Equal(t, []string{"imports.created", "imports.updated"}, pub.subjects)
}

func TestRunDrainsInBackground(t *testing.T) {
	relay, outbox, docs, _ := newTestRelay(t)
	ctx, cancel := context.WithCancel(context.Background())

	outbox.Append(models.AggregateTransaction, "txn-9", "refund", []byte(`{"id":"txn-9"}`))
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, err := docs.Get(context.Background(), docstore.CollectionTransactions, "txn-9")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

var _ events.Publisher = (*capturePublisher)(nil)
