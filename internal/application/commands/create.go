package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// CreatePageResult contains the result of creating a page
type CreatePageResult struct {
	Page    *domain.Page
	Existed bool // the journal page for the day was already there
	Message string
}

// CreatePageCommand creates a titled page or the journal page for a day
type CreatePageCommand struct {
	store   ports.PageStore
	UserID  string
	Title   string
	Journal bool
	Now     func() time.Time
}

// NewCreatePageCommand creates a command for a titled page
func NewCreatePageCommand(store ports.PageStore, userID, title string) *CreatePageCommand {
	return &CreatePageCommand{
		store:  store,
		UserID: userID,
		Title:  title,
		Now:    time.Now,
	}
}

// NewJournalCommand creates a command that opens today's journal page,
// creating it on first use
func NewJournalCommand(store ports.PageStore, userID string, now func() time.Time) *CreatePageCommand {
	if now == nil {
		now = time.Now
	}
	return &CreatePageCommand{
		store:   store,
		UserID:  userID,
		Journal: true,
		Now:     now,
	}
}

// Validate checks if the create operation is valid
func (c *CreatePageCommand) Validate() error {
	if err := application.ValidateRequired("userID", c.UserID); err != nil {
		return err
	}
	if c.Journal {
		return nil
	}
	return application.ValidateTitle("title", c.Title)
}

// Execute runs the create command
func (c *CreatePageCommand) Execute(ctx context.Context) (*CreatePageResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	title := c.Title
	if c.Journal {
		title = domain.JournalTitle(c.Now())
		pages, err := c.store.Fetch(ctx, c.UserID)
		if err != nil {
			return nil, &application.TransportError{Op: "fetch pages", Err: err}
		}
		if p, ok := application.FindPage(pages, title); ok {
			return &CreatePageResult{Page: p, Existed: true, Message: fmt.Sprintf("Opened journal %s", title)}, nil
		}
	}

	req := ports.SaveRequest{
		PageID:    uuid.NewString(),
		Title:     title,
		Value:     domain.DefaultPageValue,
		UserID:    c.UserID,
		IsJournal: c.Journal,
	}
	rev, err := c.store.Save(ctx, req)
	if err != nil {
		return nil, saveError("create page", title, err)
	}

	return &CreatePageResult{
		Page: &domain.Page{
			ID:             req.PageID,
			Title:          title,
			Value:          req.Value,
			UserID:         c.UserID,
			RevisionNumber: rev,
			LastModified:   c.Now(),
			IsJournal:      c.Journal,
		},
		Message: fmt.Sprintf("Created page: %s", title),
	}, nil
}

// saveError maps a store failure to the application error vocabulary
func saveError(op, title string, err error) error {
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		if ce.Code == domain.CodeUniqueViolation {
			return fmt.Errorf("%w: %s", application.ErrDuplicateTitle, title)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return &application.TransportError{Op: op, Err: err}
}
