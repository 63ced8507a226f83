package ports

import (
	"context"
	"time"
)

// QueuedUpdate is a save that could not reach the page store
type QueuedUpdate struct {
	SaveRequest
	QueuedAt time.Time `json:"queuedAt"`
}

// OfflineQueue holds at most one pending update per page
type OfflineQueue interface {
	// Get returns the queued update for pageID, or nil if none
	Get(ctx context.Context, pageID string) (*QueuedUpdate, error)
	// Put stores update, replacing any earlier one for the same page
	Put(ctx context.Context, update QueuedUpdate) error
	Delete(ctx context.Context, pageID string) error
	List(ctx context.Context) ([]QueuedUpdate, error)
}
