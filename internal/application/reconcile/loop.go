package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quaderno/internal/application/formula"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// DefaultDebounceInterval is the persistence debounce window
const DefaultDebounceInterval = 500 * time.Millisecond

// ErrStopped is returned when a request reaches a loop that is not running
var ErrStopped = errors.New("reconcile loop stopped")

// LoopConfig holds loop settings
type LoopConfig struct {
	// DebounceInterval coalesces rapid edits into one persistence pass
	DebounceInterval time.Duration
	// RefreshInterval pulls remote changes periodically; zero disables it
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// message is something the loop applies to the engine on its goroutine
type message interface {
	apply(ctx context.Context, l *Loop) error
}

type request struct {
	msg   message
	reply chan error
}

// Loop owns an Engine on a single goroutine. Every mutation arrives as a
// message; resolver and store calls run on their own goroutines and post
// their results back.
type Loop struct {
	engine   *Engine
	debounce time.Duration
	refresh  time.Duration
	logger   *slog.Logger

	msgs    chan request
	updates chan struct{}
	done    chan struct{}
	timer   *time.Timer
}

// NewLoop creates a Loop around engine. Call Run to start it.
func NewLoop(engine *Engine, cfg LoopConfig) *Loop {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		engine:   engine,
		debounce: cfg.DebounceInterval,
		refresh:  cfg.RefreshInterval,
		logger:   cfg.Logger,
		msgs:     make(chan request, 64),
		updates:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run processes messages until ctx is cancelled. It runs one cycle first so
// formulas on loaded pages are mounted.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer func() {
		if l.timer != nil {
			l.timer.Stop()
		}
	}()

	var tick <-chan time.Time
	if l.refresh > 0 {
		t := time.NewTicker(l.refresh)
		defer t.Stop()
		tick = t.C
	}

	l.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			l.startRefresh(ctx)
		case req := <-l.msgs:
			err := req.msg.apply(ctx, l)
			l.cycle(ctx)
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Updates signals after every cycle. Signals coalesce; receivers should
// re-read state through Inspect.
func (l *Loop) Updates() <-chan struct{} {
	return l.updates
}

func (l *Loop) cycle(ctx context.Context) {
	rep := l.engine.Reconcile(ctx)
	if len(rep.Jobs) > 0 {
		jobs := rep.Jobs
		go func() {
			l.post(queryResults{outcomes: l.engine.formulas.RunJobs(ctx, jobs)})
		}()
	}
	if rep.PersistDue {
		l.schedulePersist()
	}
	select {
	case l.updates <- struct{}{}:
	default:
	}
}

// schedulePersist restarts the debounce window
func (l *Loop) schedulePersist() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, func() {
		l.post(persistDue{})
	})
}

func (l *Loop) startRefresh(ctx context.Context) {
	since := l.engine.lastSync
	go func() {
		pages, err := l.engine.store.FetchSince(ctx, l.engine.userID, since)
		if err != nil {
			l.logger.Warn("refresh failed", "error", err)
			return
		}
		l.post(remoteChanges{pages: pages})
	}()
}

// post delivers a message from a worker goroutine without waiting for it
func (l *Loop) post(m message) {
	select {
	case l.msgs <- request{msg: m}:
	case <-l.done:
	}
}

// send delivers a message and waits until it has been applied
func (l *Loop) send(ctx context.Context, m message) error {
	req := request{msg: m, reply: make(chan error, 1)}
	select {
	case l.msgs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// EditPage replaces a page value as a user edit
func (l *Loop) EditPage(ctx context.Context, pageID, value string) error {
	return l.send(ctx, pageEdited{pageID: pageID, value: value})
}

// SetLine replaces one line of a page as a user edit
func (l *Loop) SetLine(ctx context.Context, pageID string, line int, content string) error {
	return l.send(ctx, lineSet{pageID: pageID, line: line, content: content})
}

// EditNode edits a materialized node directly
func (l *Loop) EditNode(ctx context.Context, key, content string) error {
	return l.send(ctx, nodeEdited{key: key, content: content})
}

// NodeDestroyed reports a materialized node removed from a document
func (l *Loop) NodeDestroyed(ctx context.Context, key string) error {
	return l.send(ctx, nodeDestroyed{key: key})
}

// ApplyEdit runs a structural edit on a page line
func (l *Loop) ApplyEdit(ctx context.Context, pageID string, op EditOp, line int) error {
	return l.send(ctx, editApplied{pageID: pageID, op: op, line: line})
}

// SelectFormula moves formula edit mode to a line
func (l *Loop) SelectFormula(ctx context.Context, pageID string, line int) error {
	return l.send(ctx, formulaSelected{pageID: pageID, line: line})
}

// Track adds or replaces a page with a server copy
func (l *Loop) Track(ctx context.Context, p domain.Page) error {
	return l.send(ctx, pageTracked{page: p})
}

// Forget drops a page
func (l *Loop) Forget(ctx context.Context, pageID string) error {
	return l.send(ctx, pageForgotten{pageID: pageID})
}

// Reload fetches the server copy of a page and replaces the local one
func (l *Loop) Reload(ctx context.Context, pageID string) error {
	server, err := l.engine.store.Get(ctx, pageID)
	if err != nil {
		return err
	}
	return l.send(ctx, pageReloaded{page: *server})
}

// Sync replays the offline queue, pulls remote changes and starts saving
// pending pages without waiting for the debounce window. It returns the
// number of queued updates that reached the store.
func (l *Loop) Sync(ctx context.Context) (int, error) {
	m := &syncRequested{}
	if err := l.send(ctx, m); err != nil {
		return m.flushed, err
	}
	return m.flushed, nil
}

// Inspect runs fn on the loop goroutine with exclusive access to the engine
func (l *Loop) Inspect(ctx context.Context, fn func(*Engine)) error {
	return l.send(ctx, inspect{fn: fn})
}

type pageEdited struct {
	pageID, value string
}

func (m pageEdited) apply(_ context.Context, l *Loop) error {
	return l.engine.EditPage(m.pageID, m.value)
}

type lineSet struct {
	pageID  string
	line    int
	content string
}

func (m lineSet) apply(_ context.Context, l *Loop) error {
	return l.engine.SetLine(m.pageID, m.line, m.content)
}

type nodeEdited struct {
	key, content string
}

func (m nodeEdited) apply(_ context.Context, l *Loop) error {
	return l.engine.EditNode(m.key, m.content)
}

type nodeDestroyed struct {
	key string
}

func (m nodeDestroyed) apply(_ context.Context, l *Loop) error {
	l.engine.NodeDestroyed(m.key)
	return nil
}

type editApplied struct {
	pageID string
	op     EditOp
	line   int
}

func (m editApplied) apply(_ context.Context, l *Loop) error {
	_, err := l.engine.ApplyEdit(m.pageID, m.op, m.line)
	return err
}

type formulaSelected struct {
	pageID string
	line   int
}

func (m formulaSelected) apply(_ context.Context, l *Loop) error {
	_, err := l.engine.SelectFormula(m.pageID, m.line)
	return err
}

type pageTracked struct {
	page domain.Page
}

func (m pageTracked) apply(_ context.Context, l *Loop) error {
	l.engine.Track(m.page)
	return nil
}

type pageForgotten struct {
	pageID string
}

func (m pageForgotten) apply(_ context.Context, l *Loop) error {
	l.engine.Forget(m.pageID)
	return nil
}

type pageReloaded struct {
	page domain.Page
}

func (m pageReloaded) apply(ctx context.Context, l *Loop) error {
	l.engine.ApplyReload(ctx, m.page)
	return nil
}

type remoteChanges struct {
	pages []domain.Page
}

func (m remoteChanges) apply(_ context.Context, l *Loop) error {
	if n := l.engine.ApplyRemote(m.pages); n > 0 {
		l.logger.Debug("remote changes applied", "pages", n)
	}
	return nil
}

type inspect struct {
	fn func(*Engine)
}

func (m inspect) apply(_ context.Context, l *Loop) error {
	m.fn(l.engine)
	return nil
}

type syncRequested struct {
	flushed int
}

func (m *syncRequested) apply(ctx context.Context, l *Loop) error {
	n, err := l.engine.FlushQueue(ctx)
	m.flushed = n
	if err != nil {
		return err
	}
	if _, err := l.engine.Refresh(ctx); err != nil {
		return err
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	return persistDue{}.apply(ctx, l)
}

type queryResults struct {
	outcomes []formula.Outcome
}

func (m queryResults) apply(_ context.Context, l *Loop) error {
	l.engine.ApplyResults(m.outcomes)
	return nil
}

type persistDue struct{}

func (persistDue) apply(ctx context.Context, l *Loop) error {
	for _, req := range l.engine.BeginSaves(ctx) {
		go func(req ports.SaveRequest) {
			rev, err := l.engine.store.Save(ctx, req)
			l.post(saveResult{req: req, rev: rev, err: err})
		}(req)
	}
	return nil
}

type saveResult struct {
	req ports.SaveRequest
	rev int64
	err error
}

func (m saveResult) apply(ctx context.Context, l *Loop) error {
	// the debounce that fired during the write skipped this page
	if l.engine.ApplySave(ctx, m.req, m.rev, m.err) {
		l.schedulePersist()
	}
	return nil
}
