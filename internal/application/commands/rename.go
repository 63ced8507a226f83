package commands

import (
	"context"
	"fmt"
	"strings"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// RenameResult contains the result of a rename operation
type RenameResult struct {
	PageID   string
	OldTitle string
	NewTitle string
	Revision int64
	Message  string
}

// RenameCommand gives a page a new title
type RenameCommand struct {
	store    ports.PageStore
	PageID   string
	NewTitle string
}

// NewRenameCommand creates a new RenameCommand
func NewRenameCommand(store ports.PageStore, pageID, newTitle string) *RenameCommand {
	return &RenameCommand{
		store:    store,
		PageID:   pageID,
		NewTitle: newTitle,
	}
}

// Validate checks if the rename operation is valid
func (c *RenameCommand) Validate() error {
	if err := application.ValidateRequired("pageID", c.PageID); err != nil {
		return err
	}
	return application.ValidateTitle("title", strings.TrimSpace(c.NewTitle))
}

// Execute runs the rename command. The write is checked against the
// revision just read, so a concurrent edit surfaces as a conflict.
func (c *RenameCommand) Execute(ctx context.Context) (*RenameResult, error) {
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

	eligibility := CheckRenameEligibility(page)
	if !eligibility.CanRename {
		return nil, &application.ValidationError{Field: "pageID", Message: eligibility.Reason}
	}

	newTitle := strings.TrimSpace(c.NewTitle)
	rev, err := c.store.Save(ctx, ports.SaveRequest{
		PageID:           page.ID,
		Title:            newTitle,
		Value:            page.Value,
		UserID:           page.UserID,
		IsJournal:        page.IsJournal,
		ExpectedRevision: page.RevisionNumber,
	})
	if err != nil {
		return nil, saveError("rename page", newTitle, err)
	}

	return &RenameResult{
		PageID:   page.ID,
		OldTitle: page.Title,
		NewTitle: newTitle,
		Revision: rev,
		Message:  fmt.Sprintf("Renamed %s to %s", page.Title, newTitle),
	}, nil
}

// RenameEligibility contains the result of checking if a page can be renamed
type RenameEligibility struct {
	CanRename bool
	Reason    string
}

// CheckRenameEligibility determines if a page can be renamed. Journal
// titles are derived from their date.
func CheckRenameEligibility(p *domain.Page) RenameEligibility {
	if p.IsJournal {
		return RenameEligibility{CanRename: false, Reason: "cannot rename journal pages"}
	}
	return RenameEligibility{CanRename: true}
}
