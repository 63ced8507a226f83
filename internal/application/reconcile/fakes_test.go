package reconcile

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quaderno/internal/application"
	"quaderno/internal/application/formula"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

var epoch = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// memStore is a revision-checked in-memory page store
type memStore struct {
	mu       sync.Mutex
	pages    map[string]domain.Page
	tick     int
	failWith error
	gate     chan struct{} // when set, saves wait for it to close
	started  chan string
}

func newMemStore(pages ...domain.Page) *memStore {
	s := &memStore{pages: make(map[string]domain.Page)}
	for _, p := range pages {
		s.put(p)
	}
	return s
}

// put overwrites a page as another device would
func (s *memStore) put(p domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	p.LastModified = epoch.Add(time.Duration(s.tick) * time.Second)
	s.pages[p.ID] = p
}

func (s *memStore) get(id string) domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[id]
}

func (s *memStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// hold makes saves block until release is called. started receives the
// page ID of each save as it begins.
func (s *memStore) hold() (started <-chan string, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.started = make(chan string, 16)
	gate := s.gate
	return s.started, func() { close(gate) }
}

func (s *memStore) Save(_ context.Context, req ports.SaveRequest) (int64, error) {
	s.mu.Lock()
	gate, started := s.gate, s.started
	s.mu.Unlock()
	if gate != nil {
		select {
		case started <- req.PageID:
		default:
		}
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, s.failWith
	}

	cur, exists := s.pages[req.PageID]
	if cur.RevisionNumber != req.ExpectedRevision {
		return 0, &domain.ConflictError{
			PageID: req.PageID, Code: domain.CodeStaleRevision,
			ExpectedRevision: req.ExpectedRevision, CurrentRevision: cur.RevisionNumber,
		}
	}
	for id, other := range s.pages {
		if id != req.PageID && other.Title == req.Title && !other.Deleted {
			return 0, &domain.ConflictError{PageID: req.PageID, Code: domain.CodeUniqueViolation}
		}
	}
	if !exists {
		cur = domain.Page{ID: req.PageID}
	}

	s.tick++
	cur.Title = req.Title
	cur.Value = req.Value
	cur.UserID = req.UserID
	cur.IsJournal = req.IsJournal
	cur.Deleted = req.Deleted
	cur.RevisionNumber++
	cur.LastModified = epoch.Add(time.Duration(s.tick) * time.Second)
	s.pages[req.PageID] = cur
	return cur.RevisionNumber, nil
}

func (s *memStore) Get(_ context.Context, id string) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, &application.NotFoundError{Kind: "page", Ref: id}
	}
	return &p, nil
}

func (s *memStore) Fetch(ctx context.Context, _ string) ([]domain.Page, error) {
	pages, err := s.FetchSince(ctx, "", time.Time{})
	var live []domain.Page
	for _, p := range pages {
		if !p.Deleted {
			live = append(live, p)
		}
	}
	return live, err
}

func (s *memStore) FetchSince(_ context.Context, _ string, since time.Time) ([]domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []domain.Page
	for _, p := range s.pages {
		if p.LastModified.After(since) {
			out = append(out, p)
		}
	}
	domain.SortPagesByTitle(out)
	return out, nil
}

type memQueue struct {
	mu      sync.Mutex
	updates map[string]ports.QueuedUpdate
}

func newMemQueue() *memQueue {
	return &memQueue{updates: make(map[string]ports.QueuedUpdate)}
}

func (q *memQueue) Get(_ context.Context, id string) (*ports.QueuedUpdate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.updates[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (q *memQueue) Put(_ context.Context, u ports.QueuedUpdate) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.updates[u.PageID] = u
	return nil
}

func (q *memQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.updates, id)
	return nil
}

func (q *memQueue) List(context.Context) ([]ports.QueuedUpdate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []ports.QueuedUpdate
	for _, u := range q.updates {
		out = append(out, u)
	}
	return out, nil
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []ports.Alert
}

func (a *alertRecorder) Alert(al ports.Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, al)
}

func (a *alertRecorder) all() []ports.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ports.Alert(nil), a.alerts...)
}

// lockedBuffer collects log output from several goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	store  *memStore
	queue  *memQueue
	alerts *alertRecorder
	logs   *lockedBuffer
	engine *Engine
}

func newHarness(t *testing.T, pages ...domain.Page) *harness {
	t.Helper()
	return newHarnessWithResolver(t, nil, pages...)
}

func newHarnessWithResolver(t *testing.T, resolver ports.QueryResolver, pages ...domain.Page) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(pages...),
		queue:  newMemQueue(),
		alerts: &alertRecorder{},
		logs:   &lockedBuffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.engine = NewEngine(h.store, h.queue, formula.NewService(resolver, logger), h.alerts, Config{
		UserID: "u1",
		Logger: logger,
		Now:    func() time.Time { return epoch },
	})
	require.NoError(t, h.engine.Load(context.Background()))
	return h
}

func (h *harness) page(t *testing.T, id string) domain.Page {
	t.Helper()
	p, ok := h.engine.Page(id)
	require.True(t, ok, "page %s not tracked", id)
	return p
}

// requireOutputsMatchPages checks that every shared node caches the text
// of its line, except on pages being typed in or in conflict
func requireOutputsMatchPages(t *testing.T, e *Engine) {
	t.Helper()
	for key, n := range e.Nodes() {
		p, ok := e.PageByTitle(n.Output.PageName)
		require.True(t, ok, "node %s points at missing page", key)
		if p.Status == domain.StatusUserEdit || p.Status == domain.StatusConflict {
			continue
		}
		line, ok := p.Line(n.Output.LineNumber)
		require.True(t, ok, "node %s points past the end of its page", key)
		require.Equal(t, domain.StripIndent(line), n.Output.NodeMarkdown, "node %s", key)
	}
}

func pageP() domain.Page {
	return domain.Page{ID: "p", Title: "P", UserID: "u1", RevisionNumber: 1,
		Value: "- groceries\n- errands\n  - post office\n- TODO buy milk"}
}

func pageQ(formula string) domain.Page {
	return domain.Page{ID: "q", Title: "Q", UserID: "u1", RevisionNumber: 1,
		Value: "- =" + formula}
}
