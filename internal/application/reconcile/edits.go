package reconcile

import (
	"fmt"

	"quaderno/internal/application"
	"quaderno/internal/domain"
)

// EditOp is a structural edit on one line of a page
type EditOp int

const (
	OpIndent EditOp = iota
	OpOutdent
	OpDelete
	OpPrependChild
	OpMoveUp
	OpMoveDown
)

func (op EditOp) String() string {
	switch op {
	case OpIndent:
		return "indent"
	case OpOutdent:
		return "outdent"
	case OpDelete:
		return "delete"
	case OpPrependChild:
		return "prepend-child"
	case OpMoveUp:
		return "move-up"
	case OpMoveDown:
		return "move-down"
	default:
		return "unknown"
	}
}

// ParseEditOp parses the String form of an EditOp
func ParseEditOp(s string) (EditOp, error) {
	for op := OpIndent; op <= OpMoveDown; op++ {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, &application.ValidationError{Field: "op", Message: fmt.Sprintf("unknown edit %q", s)}
}

// EditPage records a user edit replacing the whole page value
func (e *Engine) EditPage(pageID, value string) error {
	p, ok := e.pages[pageID]
	if !ok {
		return &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	if p.Value == value {
		return nil
	}
	if err := p.Transition(domain.StatusUserEdit); err != nil {
		return err
	}
	p.Value = value
	e.invalid[p.Title] = true
	return nil
}

// SetLine replaces the content of one line, keeping its indentation. Editing
// a materialized line also edits the shared node behind it, so the change
// is written back to the source page.
func (e *Engine) SetLine(pageID string, line int, content string) error {
	p, ok := e.pages[pageID]
	if !ok {
		return &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	doc := e.document(p)
	if err := application.ValidateLineNumber("line", line, doc.Len()); err != nil {
		return err
	}

	value, err := domain.ReplaceLineContent(p.Value, line, content)
	if err != nil {
		return err
	}
	if err := e.EditPage(pageID, value); err != nil {
		return err
	}

	id, _ := doc.NodeAtLine(line)
	if n, _ := doc.Node(id); n.Kind == domain.KindMaterialized && n.Source != nil {
		return e.EditNode(n.Source.Key(), domain.StripIndent(content))
	}
	return nil
}

// EditNode records a direct edit of a materialized node. The next cycle
// writes it back into the owning page.
func (e *Engine) EditNode(key, content string) error {
	n, ok := e.nodes[key]
	if !ok {
		return &application.NotFoundError{Kind: "node", Ref: key}
	}
	if n.Output.NodeMarkdown == content {
		return nil
	}
	n.Output.NodeMarkdown = content
	n.NeedsSyncToPage = true
	delete(e.collided, key)
	for _, q := range n.Queries {
		e.remat[q] = true
	}
	return nil
}

// NodeDestroyed drops the shared entry behind a removed materialized node
func (e *Engine) NodeDestroyed(key string) {
	if _, ok := e.nodes[key]; ok {
		e.dropNode(key)
		nodeActions.WithLabelValues("removed").Inc()
	}
}

// ApplyEdit runs a structural edit on a page line. Materialized nodes
// destroyed by the edit are dropped from the shared index.
func (e *Engine) ApplyEdit(pageID string, op EditOp, line int) (domain.EditResult, error) {
	p, ok := e.pages[pageID]
	if !ok {
		return domain.EditResult{}, &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	if !p.Status.CanTransition(domain.StatusUserEdit) {
		return domain.EditResult{}, &domain.StatusError{PageID: pageID, From: p.Status, To: domain.StatusUserEdit}
	}

	doc := e.document(p)
	id, ok := doc.NodeAtLine(line)
	if !ok {
		return domain.EditResult{}, application.ValidateLineNumber("line", line, doc.Len())
	}

	var res domain.EditResult
	switch op {
	case OpIndent:
		res = doc.Indent(id)
	case OpOutdent:
		res = doc.Outdent(id)
	case OpDelete:
		res = doc.Delete(id)
	case OpPrependChild:
		res = doc.PrependChild(id)
	case OpMoveUp:
		e.logger.Info("move requested, not supported", "page", p.Title, "line", line, "op", op)
		res = doc.MoveUp(id)
	case OpMoveDown:
		e.logger.Info("move requested, not supported", "page", p.Title, "line", line, "op", op)
		res = doc.MoveDown(id)
	default:
		return res, &application.ValidationError{Field: "op", Message: fmt.Sprintf("unknown edit %d", op)}
	}
	if !res.Changed {
		return res, nil
	}

	for _, n := range res.Destroyed {
		if n.Kind == domain.KindMaterialized && n.Source != nil {
			e.NodeDestroyed(n.Source.Key())
		}
	}
	return res, e.EditPage(pageID, doc.Markdown())
}

// SelectFormula moves formula edit mode to the given line. At most one
// formula is in edit mode; the previously active one is returned so the
// caller can redraw it in display mode. Selecting a non-formula line leaves
// no formula active.
func (e *Engine) SelectFormula(pageID string, line int) (demoted *FormulaRef, err error) {
	p, ok := e.pages[pageID]
	if !ok {
		return nil, &application.NotFoundError{Kind: "page", Ref: pageID}
	}

	var next *FormulaRef
	doc := domain.ParseDocument(p.Value)
	if id, ok := doc.NodeAtLine(line); ok {
		if n, _ := doc.Node(id); n.Kind.IsFormula() {
			next = &FormulaRef{PageID: pageID, Line: line, Query: n.Text}
		}
	}

	prev := e.activeFormula()
	e.active = next
	if prev != nil && (next == nil || *prev != *next) {
		return prev, nil
	}
	return nil, nil
}
