package commands

import (
	"context"
	"fmt"

	"quaderno/internal/application"
	"quaderno/internal/ports"
)

// DeleteResult contains the result of a delete operation
type DeleteResult struct {
	PageID  string
	Title   string
	Message string
}

// DeleteCommand soft-deletes a page. The row stays in the store with the
// deleted flag set so other devices learn about it on refresh.
type DeleteCommand struct {
	store  ports.PageStore
	PageID string
}

// NewDeleteCommand creates a new DeleteCommand
func NewDeleteCommand(store ports.PageStore, pageID string) *DeleteCommand {
	return &DeleteCommand{
		store:  store,
		PageID: pageID,
	}
}

// Validate checks if the delete operation is valid
func (c *DeleteCommand) Validate() error {
	return application.ValidateRequired("pageID", c.PageID)
}

// Execute runs the delete command
func (c *DeleteCommand) Execute(ctx context.Context) (*DeleteResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	page, err := c.store.Get(ctx, c.PageID)
	if err != nil {
		return nil, err
	}
	if page.Deleted {
		return nil, &application.NotFoundError{Kind: "page", Ref: c.PageID}
	}

	if _, err := c.store.Save(ctx, ports.SaveRequest{
		PageID:           page.ID,
		Title:            page.Title,
		Value:            page.Value,
		UserID:           page.UserID,
		IsJournal:        page.IsJournal,
		Deleted:          true,
		ExpectedRevision: page.RevisionNumber,
	}); err != nil {
		return nil, saveError("delete page", page.Title, err)
	}

	return &DeleteResult{
		PageID:  page.ID,
		Title:   page.Title,
		Message: fmt.Sprintf("Deleted page: %s", page.Title),
	}, nil
}
