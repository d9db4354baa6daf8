package events

import (
	"context"
	"time"
)

// Type names a record lifecycle change.
type Type string

const (
	RecordCreated Type = "record.created"
	RecordUpdated Type = "record.updated"
	RecordDeleted Type = "record.deleted"
)

// RecordEvent is published after a mutation commits. Record is omitted for
// deletions.
type RecordEvent struct {
	Type       Type           `json:"type"`
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Record     map[string]any `json:"record,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}
