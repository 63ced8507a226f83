package ports

import (
	"context"
	"time"

	"quaderno/internal/domain"
)

// SaveRequest is a versioned write of a page
type SaveRequest struct {
	PageID           string `json:"pageId"`
	Title            string `json:"title"`
	Value            string `json:"value"`
	UserID           string `json:"userId"`
	IsJournal        bool   `json:"isJournal"`
	Deleted          bool   `json:"deleted"`
	ExpectedRevision int64  `json:"expectedRevision"` // 0 creates the page
}

// PageStore is the revision-checked persistence layer for pages
type PageStore interface {
	// Save applies the write only if ExpectedRevision matches the stored
	// revision. On mismatch or a duplicate title it returns a
	// *domain.ConflictError and leaves the stored page untouched.
	Save(ctx context.Context, req SaveRequest) (newRevision int64, err error)

	// Get returns a single page by ID, including soft-deleted pages
	Get(ctx context.Context, pageID string) (*domain.Page, error)

	// Fetch returns every live page owned by userID
	Fetch(ctx context.Context, userID string) ([]domain.Page, error)

	// FetchSince returns pages (deleted ones included) modified after since
	FetchSince(ctx context.Context, userID string, since time.Time) ([]domain.Page, error)
}
