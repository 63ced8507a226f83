package views

import (
	"context"

	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
)

// Session is the page state the views read and edit
type Session interface {
	Pages(ctx context.Context) ([]domain.Page, error)
	Outline(ctx context.Context, pageID string) (*Outline, error)

	EditPage(ctx context.Context, pageID, value string) error
	SetLine(ctx context.Context, pageID string, line int, content string) error
	ApplyEdit(ctx context.Context, pageID string, op reconcile.EditOp, line int) error
	SelectFormula(ctx context.Context, pageID string, line int) error

	CreatePage(ctx context.Context, title string) (domain.Page, error)
	OpenJournal(ctx context.Context) (domain.Page, error)
	Rename(ctx context.Context, pageID, title string) error
	Delete(ctx context.Context, pageID string) error
	Reload(ctx context.Context, pageID string) error
	Sync(ctx context.Context) (int, error)
}

// OutlineLine is one rendered line of a page
type OutlineLine struct {
	Depth  int // 0 for top-level bullets
	Kind   domain.NodeKind
	Text   string // bullet text; the formula itself for formula lines
	Result string // cached formula answer
	Raw    string // stored line content without indentation
}

// Outline is a page with its lines classified
type Outline struct {
	Page  domain.Page
	Lines []OutlineLine
}

// NewOutline classifies the lines of p. activeLine is the formula line in
// edit mode, or -1.
func NewOutline(p domain.Page, doc *domain.Document, activeLine int) *Outline {
	out := &Outline{Page: p}
	for i, id := range doc.Order() {
		n, _ := doc.Node(id)
		kind := n.Kind
		if kind == domain.KindFormulaDisplay && i == activeLine {
			kind = domain.KindFormulaEditor
		}
		out.Lines = append(out.Lines, OutlineLine{
			Depth:  doc.Depth(id) - 1,
			Kind:   kind,
			Text:   n.Text,
			Result: n.Result,
			Raw:    doc.LineContent(id),
		})
	}
	return out
}
