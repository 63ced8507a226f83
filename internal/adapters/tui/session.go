package tui

import (
	"context"
	"fmt"

	"quaderno/internal/adapters/tui/views"
	"quaderno/internal/application"
	"quaderno/internal/application/commands"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// LoopSession implements views.Session on a running reconciliation loop.
// Reads and edits go through the loop; creating, renaming and deleting
// pages go to the store first and are then reflected into the loop.
type LoopSession struct {
	loop   *reconcile.Loop
	store  ports.PageStore
	userID string
}

var _ views.Session = (*LoopSession)(nil)

// NewLoopSession creates a session for userID
func NewLoopSession(loop *reconcile.Loop, store ports.PageStore, userID string) *LoopSession {
	return &LoopSession{loop: loop, store: store, userID: userID}
}

func (s *LoopSession) Pages(ctx context.Context) ([]domain.Page, error) {
	var pages []domain.Page
	err := s.loop.Inspect(ctx, func(e *reconcile.Engine) {
		pages = e.Pages()
	})
	return pages, err
}

func (s *LoopSession) Outline(ctx context.Context, pageID string) (*views.Outline, error) {
	var (
		out *views.Outline
		err error
	)
	if ierr := s.loop.Inspect(ctx, func(e *reconcile.Engine) {
		p, ok := e.Page(pageID)
		if !ok {
			err = &application.NotFoundError{Kind: "page", Ref: pageID}
			return
		}
		doc, derr := e.Document(pageID)
		if derr != nil {
			err = derr
			return
		}
		// Document already marks the formula in edit mode
		out = views.NewOutline(p, doc, -1)
	}); ierr != nil {
		return nil, ierr
	}
	return out, err
}

func (s *LoopSession) EditPage(ctx context.Context, pageID, value string) error {
	return s.loop.EditPage(ctx, pageID, value)
}

func (s *LoopSession) SetLine(ctx context.Context, pageID string, line int, content string) error {
	return s.loop.SetLine(ctx, pageID, line, content)
}

func (s *LoopSession) ApplyEdit(ctx context.Context, pageID string, op reconcile.EditOp, line int) error {
	return s.loop.ApplyEdit(ctx, pageID, op, line)
}

func (s *LoopSession) SelectFormula(ctx context.Context, pageID string, line int) error {
	return s.loop.SelectFormula(ctx, pageID, line)
}

func (s *LoopSession) CreatePage(ctx context.Context, title string) (domain.Page, error) {
	return s.create(ctx, commands.NewCreatePageCommand(s.store, s.userID, title))
}

func (s *LoopSession) OpenJournal(ctx context.Context) (domain.Page, error) {
	return s.create(ctx, commands.NewJournalCommand(s.store, s.userID, nil))
}

func (s *LoopSession) create(ctx context.Context, cmd *commands.CreatePageCommand) (domain.Page, error) {
	result, err := cmd.Execute(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	if !result.Existed {
		if err := s.loop.Track(ctx, *result.Page); err != nil {
			return domain.Page{}, fmt.Errorf("failed to track %s: %w", result.Page.Title, err)
		}
	}
	return *result.Page, nil
}

func (s *LoopSession) Rename(ctx context.Context, pageID, title string) error {
	if _, err := commands.NewRenameCommand(s.store, pageID, title).Execute(ctx); err != nil {
		return err
	}
	return s.loop.Reload(ctx, pageID)
}

func (s *LoopSession) Delete(ctx context.Context, pageID string) error {
	if _, err := commands.NewDeleteCommand(s.store, pageID).Execute(ctx); err != nil {
		return err
	}
	return s.loop.Forget(ctx, pageID)
}

func (s *LoopSession) Reload(ctx context.Context, pageID string) error {
	return s.loop.Reload(ctx, pageID)
}

func (s *LoopSession) Sync(ctx context.Context) (int, error) {
	return s.loop.Sync(ctx)
}
