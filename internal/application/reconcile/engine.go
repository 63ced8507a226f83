package reconcile

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"quaderno/internal/application"
	"quaderno/internal/application/conflict"
	"quaderno/internal/application/formula"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Config holds engine settings
type Config struct {
	UserID string
	Logger *slog.Logger
	Now    func() time.Time
}

// FormulaRef addresses a formula line. Query pins the formula, so the ref
// follows it when edits above move its line.
type FormulaRef struct {
	PageID string
	Line   int
	Query  string
}

// Engine owns the page collection, the shared node index and the query
// counter. It is not safe for concurrent use; Loop serializes access.
type Engine struct {
	store     ports.PageStore
	queue     ports.OfflineQueue
	alerts    ports.Alerter
	formulas  *formula.Service
	conflicts *conflict.Manager
	logger    *slog.Logger
	userID    string
	now       func() time.Time

	pages     map[string]*domain.Page
	lastSaved map[string]string // value last known to match the store
	inflight  map[string]bool   // saves started but not yet applied
	lastSync  time.Time

	nodes      domain.SharedNodeMap
	collided   map[string]bool // node edits held back after a page edit won
	counter    domain.QueryCounter
	mounts     map[string][]string // page ID -> queries of its formulas, sorted, repeats kept
	results    map[string]*domain.FormulaResult
	unresolved map[string]bool

	stale   map[string]bool // queries needing a run over every page
	invalid map[string]bool // page titles whose entries must be re-derived
	remat   map[string]bool // queries whose formulas must be redrawn

	active *FormulaRef
}

// NewEngine creates an Engine. alerts may be nil.
func NewEngine(store ports.PageStore, queue ports.OfflineQueue, formulas *formula.Service, alerts ports.Alerter, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if alerts == nil {
		alerts = ports.AlerterFunc(func(ports.Alert) {})
	}

	e := &Engine{
		store:    store,
		queue:    queue,
		alerts:   alerts,
		formulas: formulas,
		logger:   cfg.Logger,
		userID:   cfg.UserID,
		now:      cfg.Now,
	}
	e.conflicts = conflict.NewManager(queue, e, alerts, cfg.Logger)
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.pages = make(map[string]*domain.Page)
	e.lastSaved = make(map[string]string)
	e.inflight = make(map[string]bool)
	e.nodes = make(domain.SharedNodeMap)
	e.collided = make(map[string]bool)
	e.counter = make(domain.QueryCounter)
	e.mounts = make(map[string][]string)
	e.results = make(map[string]*domain.FormulaResult)
	e.unresolved = make(map[string]bool)
	e.stale = make(map[string]bool)
	e.invalid = make(map[string]bool)
	e.remat = make(map[string]bool)
	e.active = nil
	e.lastSync = time.Time{}
}

// Load replaces all state with the user's pages from the store
func (e *Engine) Load(ctx context.Context) error {
	pages, err := e.store.Fetch(ctx, e.userID)
	if err != nil {
		return &application.TransportError{Op: "fetch pages", Err: err}
	}

	e.reset()
	for _, p := range pages {
		e.track(p)
	}
	e.logger.Debug("pages loaded", "count", len(pages))
	return nil
}

// Track adds or replaces a page with its server copy
func (e *Engine) Track(p domain.Page) {
	e.track(p)
}

func (e *Engine) track(p domain.Page) {
	if old, ok := e.pages[p.ID]; ok && old.Title != p.Title {
		e.invalid[old.Title] = true
	}
	p.Status = domain.StatusQuiescent
	e.pages[p.ID] = &p
	e.lastSaved[p.ID] = p.Value
	e.invalid[p.Title] = true
	if p.LastModified.After(e.lastSync) {
		e.lastSync = p.LastModified
	}
}

// Forget drops a page from the collection. Its entries and formulas are
// torn down on the next cycle.
func (e *Engine) Forget(pageID string) {
	p, ok := e.pages[pageID]
	if !ok {
		return
	}
	e.invalid[p.Title] = true
	delete(e.pages, pageID)
	delete(e.lastSaved, pageID)
	if e.active != nil && e.active.PageID == pageID {
		e.active = nil
	}
}

// MarkConflict freezes a page until it is reloaded
func (e *Engine) MarkConflict(pageID string) error {
	p, ok := e.pages[pageID]
	if !ok {
		return &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	return p.Transition(domain.StatusConflict)
}

// Page returns a copy of the page with the given ID
func (e *Engine) Page(pageID string) (domain.Page, bool) {
	p, ok := e.pages[pageID]
	if !ok {
		return domain.Page{}, false
	}
	return *p, true
}

// PageByTitle returns a copy of the live page with the given title
func (e *Engine) PageByTitle(title string) (domain.Page, bool) {
	if p := e.pageByTitle(title); p != nil {
		return *p, true
	}
	return domain.Page{}, false
}

func (e *Engine) pageByTitle(title string) *domain.Page {
	for _, p := range e.pages {
		if p.Title == title && !p.Deleted {
			return p
		}
	}
	return nil
}

// Pages returns copies of all live pages sorted by title
func (e *Engine) Pages() []domain.Page {
	out := make([]domain.Page, 0, len(e.pages))
	for _, p := range e.pages {
		if !p.Deleted {
			out = append(out, *p)
		}
	}
	domain.SortPagesByTitle(out)
	return out
}

// sortedPages returns the live pages in title order, for deterministic cycles
func (e *Engine) sortedPages() []*domain.Page {
	out := make([]*domain.Page, 0, len(e.pages))
	for _, p := range e.pages {
		if !p.Deleted {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Page) int {
		return strings.Compare(a.Title, b.Title)
	})
	return out
}

// Nodes returns a copy of the shared node index
func (e *Engine) Nodes() domain.SharedNodeMap {
	return e.nodes.Clone()
}

// QueryCount returns the number of mounted formulas running query
func (e *Engine) QueryCount(query string) int {
	return e.counter.Count(query)
}

// Answer returns the last result for query. unresolved is true when the
// last run produced no answer.
func (e *Engine) Answer(query string) (result *domain.FormulaResult, unresolved bool) {
	return e.results[query], e.unresolved[query]
}

// Document parses a page with provenance bound to its materialized lines
func (e *Engine) Document(pageID string) (*domain.Document, error) {
	p, ok := e.pages[pageID]
	if !ok {
		return nil, &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	doc := e.document(p)
	if ref := e.activeFormula(); ref != nil && ref.PageID == pageID {
		id, _ := doc.NodeAtLine(ref.Line)
		doc.SetKind(id, domain.KindFormulaEditor)
	}
	return doc, nil
}

func (e *Engine) document(p *domain.Page) *domain.Document {
	doc := domain.ParseDocument(p.Value)
	for _, f := range doc.Formulas() {
		n, _ := doc.Node(f)
		doc.BindSources(f, e.nodes.ForQuery(n.Text))
	}
	return doc
}

// ActiveFormula returns the formula currently in edit mode, if any
func (e *Engine) ActiveFormula() *FormulaRef {
	active := e.activeFormula()
	if active == nil {
		return nil
	}
	ref := *active
	return &ref
}

// activeFormula re-points the active ref at its formula after lines moved.
// The nearest formula with the same query wins; failing that a formula still
// on the same line is kept with its new query. Otherwise edit mode ends.
func (e *Engine) activeFormula() *FormulaRef {
	if e.active == nil {
		return nil
	}
	p, ok := e.pages[e.active.PageID]
	if !ok {
		e.active = nil
		return nil
	}
	dist := func(line int) int {
		if line > e.active.Line {
			return line - e.active.Line
		}
		return e.active.Line - line
	}

	doc := domain.ParseDocument(p.Value)
	best, fallback := -1, ""
	for line := 0; line < doc.Len(); line++ {
		id, _ := doc.NodeAtLine(line)
		n, _ := doc.Node(id)
		if !n.Kind.IsFormula() {
			continue
		}
		if n.Text == e.active.Query && (best < 0 || dist(line) < dist(best)) {
			best = line
		}
		if line == e.active.Line {
			fallback = n.Text
		}
	}
	switch {
	case best >= 0:
		e.active.Line = best
	case fallback != "":
		e.active.Query = fallback
	default:
		e.active = nil
	}
	return e.active
}
