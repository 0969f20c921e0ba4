// Package outbox projects committed outbox entries into the document store
// and onto the event stream. The entry and the primary write share a
// database transaction, so the projection is eventually consistent; a failed
// projection leaves the entry unprocessed for the next tick.
package outbox

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redirex/shipglobal-backend/internal/docstore"
	"github.com/redirex/shipglobal-backend/internal/events"
	"github.com/redirex/shipglobal-backend/internal/metrics"
	"github.com/redirex/shipglobal-backend/internal/models"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
	"github.com/redirex/shipglobal-backend/internal/worker"
)

type Relay struct {
	outbox   repo.Outbox
	docs     *docstore.Store
	pub      events.Publisher
	pool     *worker.Pool
	interval time.Duration
	batch    int
	draining atomic.Bool
}

func NewRelay(o repo.Outbox, d *docstore.Store, p events.Publisher, wp *worker.Pool, interval time.Duration, batch int) *Relay {
	return &Relay{outbox: o, docs: d, pub: p, pool: wp, interval: interval, batch: batch}
}

// Run polls until ctx is cancelled. Each tick hands one drain to the worker
// pool; ticks overlapping a slow drain are skipped to keep per-key ordering.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !r.draining.CompareAndSwap(false, true) {
				continue
			}
			r.pool.Submit(func() {
				defer r.draining.Store(false)
				r.Drain(ctx)
			})
		}
	}
}

// Drain projects one batch. Exported so tests and an eventual backfill
// command can drive the relay synchronously.
func (r *Relay) Drain(ctx context.Context) {
	entries, err := r.outbox.Unprocessed(ctx, r.batch)
	if err != nil {
		slog.Error("outbox poll", "err", err)
		return
	}
	for _, e := range entries {
		if err := r.project(ctx, e); err != nil {
			slog.Error("outbox project", "id", e.ID, "subject", e.Subject(), "err", err)
			break // keep ordering: retry from this entry next tick
		}
		if err := r.pub.Publish(e.Subject(), e.Payload); err != nil {
			// event delivery is best-effort; the docstore projection is not
			slog.Warn("event publish", "subject", e.Subject(), "err", err)
		}
		if err := r.outbox.MarkProcessed(ctx, e.ID); err != nil {
			slog.Error("outbox mark", "id", e.ID, "err", err)
			break
		}
	}
	if n, err := r.outbox.PendingCount(ctx); err == nil {
		metrics.OutboxPending.Set(float64(n))
	}
}

func (r *Relay) project(ctx context.Context, e models.OutboxEntry) error {
	switch e.Aggregate {
	case models.AggregateTransaction:
		return r.docs.Put(ctx, docstore.CollectionTransactions, e.Key, e.Payload)
	case models.AggregateImport:
		if e.Event == models.EventImportDeleted {
			return r.docs.Delete(ctx, docstore.CollectionImports, e.Key)
		}
		return r.docs.Put(ctx, docstore.CollectionImports, e.Key, e.Payload)
	default:
		slog.Warn("unknown outbox aggregate", "aggregate", e.Aggregate)
		return nil
	}
}
