// Package domain holds the contracts shared by the stockledger business modules:
// paging, lifecycle hooks, domain events and audit recording.
package domain

import (
	"context"

	"stockledger/internal/core/id"
)

// --- Pagination ---

// Page is the limit/offset window of a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Domain events ---

// Event is a fact emitted by a business operation. Publishers persist it in
// the same transaction as the change that produced it.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes events within the current transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// --- Audit ---

// AuditRecorder stores a change record for an entity.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// NopAuditRecorder discards audit records.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, id.ID, string, map[string]any) error {
	return nil
}
