package commands

import (
	"context"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// ListFilter selects which pages a listing returns
type ListFilter int

const (
	ListAll ListFilter = iota
	ListJournals
	ListPages // titled pages, journals excluded
)

// ListPagesCommand lists a user's live pages by title
type ListPagesCommand struct {
	store  ports.PageStore
	UserID string
	Filter ListFilter
}

// NewListPagesCommand creates a new ListPagesCommand
func NewListPagesCommand(store ports.PageStore, userID string, filter ListFilter) *ListPagesCommand {
	return &ListPagesCommand{
		store:  store,
		UserID: userID,
		Filter: filter,
	}
}

// Execute runs the list command
func (c *ListPagesCommand) Execute(ctx context.Context) ([]domain.Page, error) {
	if err := application.ValidateRequired("userID", c.UserID); err != nil {
		return nil, err
	}

	pages, err := c.store.Fetch(ctx, c.UserID)
	if err != nil {
		return nil, &application.TransportError{Op: "fetch pages", Err: err}
	}

	out := make([]domain.Page, 0, len(pages))
	for _, p := range pages {
		if p.Deleted {
			continue
		}
		switch {
		case c.Filter == ListJournals && !p.IsJournal:
			continue
		case c.Filter == ListPages && p.IsJournal:
			continue
		}
		out = append(out, p)
	}
	domain.SortPagesByTitle(out)
	return out, nil
}
