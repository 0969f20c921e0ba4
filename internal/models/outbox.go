package models

import "time"

// Outbox event names, aggregate-qualified on the wire as
// "<aggregate>.<event>" (e.g. transactions.deposit, imports.deleted).
const (
	AggregateTransaction = "transactions"
	AggregateImport      = "imports"

	EventImportCreated = "created"
	EventImportUpdated = "updated"
	EventImportDeleted = "deleted"

	EventTransactionVoided = "voided"
)

// OutboxEntry is written in the same database transaction as the primary
// change and projected into the document store by the relay.
type OutboxEntry struct {
	ID          int64      `json:"id"`
	Aggregate   string     `json:"aggregate"`
	Key         string     `json:"key"`
	Event       string     `json:"event"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func (e OutboxEntry) Subject() string { return e.Aggregate + "." + e.Event }
