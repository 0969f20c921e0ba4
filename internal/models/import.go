package models

import (
	"strconv"
	"time"
)

type ImportStatus string

const (
	ImportDraft      ImportStatus = "draft"
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// allowed status transitions; terminal states have no outgoing edges
var importTransitions = map[ImportStatus][]ImportStatus{
	ImportDraft:      {ImportPending},
	ImportPending:    {ImportProcessing, ImportFailed},
	ImportProcessing: {ImportCompleted, ImportFailed},
}

func (s ImportStatus) Valid() bool {
	switch s {
	case ImportDraft, ImportPending, ImportProcessing, ImportCompleted, ImportFailed:
		return true
	}
	return false
}

// CanTransition reports whether s -> next is an allowed lifecycle step.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	for _, t := range importTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Import is a tracked shipment record. Owner is either a user or a company
// account, per OwnerType.
type Import struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	OwnerType   AccountType  `json:"owner_type"`
	Title       string       `json:"title"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	Status      ImportStatus `json:"status"`
	Progress    int          `json:"progress"`
	ETA         *time.Time   `json:"eta,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewImportID builds the business key carried across both stores.
func NewImportID(now time.Time) string {
	return "IMP-" + strconv.FormatInt(now.UnixNano(), 36)
}
