package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"quaderno/internal/application"
	"quaderno/internal/application/conflict"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// BeginSaves collects every PendingWrite page that has no save in flight,
// queues each update offline and marks it in flight. The caller performs
// the store writes and hands each result to ApplySave.
func (e *Engine) BeginSaves(ctx context.Context) []ports.SaveRequest {
	var reqs []ports.SaveRequest
	for _, p := range e.sortedPages() {
		if p.Status != domain.StatusPendingWrite || e.inflight[p.ID] {
			continue
		}
		req := ports.SaveRequest{
			PageID:           p.ID,
			Title:            p.Title,
			Value:            p.Value,
			UserID:           p.UserID,
			IsJournal:        p.IsJournal,
			Deleted:          p.Deleted,
			ExpectedRevision: p.RevisionNumber,
		}
		if err := e.queue.Put(ctx, ports.QueuedUpdate{SaveRequest: req, QueuedAt: e.now()}); err != nil {
			e.logger.Warn("failed to queue update", "page", p.Title, "error", err)
		}
		e.inflight[p.ID] = true
		reqs = append(reqs, req)
	}
	return reqs
}

// ApplySave records the outcome of a store write started by BeginSaves.
// Success settles the page; a conflict goes to the conflict manager; any
// other failure leaves the page in PendingWrite with its update queued.
// It reports whether the write succeeded but the page was edited while it
// was in flight, so another save is due.
func (e *Engine) ApplySave(ctx context.Context, req ports.SaveRequest, revision int64, err error) (again bool) {
	delete(e.inflight, req.PageID)

	var ce *domain.ConflictError
	switch {
	case err == nil:
		pageSaves.WithLabelValues("ok").Inc()
		if err := e.queue.Delete(ctx, req.PageID); err != nil {
			e.logger.Warn("failed to clear queued update", "page", req.Title, "error", err)
		}
		return e.settle(req, revision)

	case errors.As(err, &ce):
		pageSaves.WithLabelValues("conflict").Inc()
		e.resolveConflict(ctx, req.PageID, ce.Code)

	default:
		pageSaves.WithLabelValues("transport").Inc()
		e.logger.Warn("save failed, update kept offline", "page", req.Title, "error", err)
		e.alerts.Alert(ports.Alert{
			PageID:   req.PageID,
			Message:  fmt.Sprintf("Could not save %q. Your changes are kept and will be retried.", req.Title),
			Blocking: true,
		})
	}
	return false
}

// settle applies a successful write to the local page and reports whether
// the page still differs from what was written
func (e *Engine) settle(req ports.SaveRequest, revision int64) bool {
	p, ok := e.pages[req.PageID]
	if !ok {
		return false
	}
	p.RevisionNumber = revision
	p.LastModified = e.now()
	e.lastSaved[p.ID] = req.Value
	if p.Status == domain.StatusQuiescent && p.Value != req.Value {
		// replayed from the offline queue
		p.Value = req.Value
		e.invalid[p.Title] = true
	}
	if p.Status == domain.StatusPendingWrite && p.Value == req.Value {
		_ = p.Transition(domain.StatusQuiescent)
	}
	return p.Status == domain.StatusPendingWrite
}

func (e *Engine) resolveConflict(ctx context.Context, pageID string, code domain.ErrorCode) {
	outcome, err := e.conflicts.HandleConflict(ctx, pageID, code)
	if err != nil {
		e.logger.Error("conflict handling failed", "page", pageID, "error", err)
		return
	}
	switch outcome {
	case conflict.OutcomeDropped:
		if err := e.Reload(ctx, pageID); err != nil {
			e.logger.Warn("reload after dropped update failed", "page", pageID, "error", err)
		}
	case conflict.OutcomeDuplicateTitle:
		e.Forget(pageID)
	}
}

// Persist saves every PendingWrite page synchronously. Transport failures
// are joined into the returned error; conflicts are not errors.
func (e *Engine) Persist(ctx context.Context) error {
	var errs []error
	for _, req := range e.BeginSaves(ctx) {
		rev, err := e.store.Save(ctx, req)
		e.ApplySave(ctx, req, rev, err)
		if err != nil && !errors.Is(err, domain.ErrRevisionConflict) {
			errs = append(errs, &application.TransportError{Op: "save " + req.Title, Err: err})
		}
	}
	return errors.Join(errs...)
}

// FlushQueue replays queued offline updates oldest first. It stops at the
// first transport failure.
func (e *Engine) FlushQueue(ctx context.Context) (int, error) {
	updates, err := e.queue.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list queued updates: %w", err)
	}
	slices.SortFunc(updates, func(a, b ports.QueuedUpdate) int {
		return a.QueuedAt.Compare(b.QueuedAt)
	})

	flushed := 0
	for _, u := range updates {
		if e.inflight[u.PageID] {
			continue
		}
		rev, err := e.store.Save(ctx, u.SaveRequest)
		var ce *domain.ConflictError
		switch {
		case err == nil:
			pageSaves.WithLabelValues("ok").Inc()
			if err := e.queue.Delete(ctx, u.PageID); err != nil {
				return flushed, fmt.Errorf("failed to clear queued update: %w", err)
			}
			e.settle(u.SaveRequest, rev)
			flushed++
		case errors.As(err, &ce):
			pageSaves.WithLabelValues("conflict").Inc()
			e.resolveConflict(ctx, u.PageID, ce.Code)
		default:
			pageSaves.WithLabelValues("transport").Inc()
			return flushed, &application.TransportError{Op: "flush " + u.Title, Err: err}
		}
	}
	return flushed, nil
}

// Reload replaces a page with the server copy, discarding local changes
// and leaving Conflict
func (e *Engine) Reload(ctx context.Context, pageID string) error {
	server, err := e.store.Get(ctx, pageID)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			e.Forget(pageID)
			return nil
		}
		return &application.TransportError{Op: "reload page", Err: err}
	}
	e.ApplyReload(ctx, *server)
	return nil
}

// ApplyReload installs a fetched server copy of a page
func (e *Engine) ApplyReload(ctx context.Context, server domain.Page) {
	if err := e.queue.Delete(ctx, server.ID); err != nil {
		e.logger.Warn("failed to clear queued update", "page", server.Title, "error", err)
	}
	if server.Deleted {
		e.Forget(server.ID)
		return
	}
	if p, ok := e.pages[server.ID]; ok {
		e.invalid[p.Title] = true
		p.Reset(server)
	}
	e.track(server)
	if e.active != nil && e.active.PageID == server.ID {
		e.active = nil
	}
}

// Refresh pulls pages changed on other devices since the last sync
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	changed, err := e.store.FetchSince(ctx, e.userID, e.lastSync)
	if err != nil {
		return 0, &application.TransportError{Op: "fetch changes", Err: err}
	}
	return e.ApplyRemote(changed), nil
}

// ApplyRemote merges pages changed elsewhere. Quiescent pages take the
// server copy; pages with local changes keep them and meet the newer
// revision as a conflict when saved.
func (e *Engine) ApplyRemote(changed []domain.Page) int {
	applied := 0
	for _, s := range changed {
		if s.LastModified.After(e.lastSync) {
			e.lastSync = s.LastModified
		}
		local, ok := e.pages[s.ID]
		switch {
		case !ok:
			if s.Deleted {
				continue
			}
			e.track(s)
		case local.RevisionNumber >= s.RevisionNumber:
			continue
		case local.Status != domain.StatusQuiescent:
			e.logger.Info("remote change deferred, page has local edits",
				"page", local.Title, "local_revision", local.RevisionNumber, "remote_revision", s.RevisionNumber)
			continue
		case s.Deleted:
			e.Forget(s.ID)
		default:
			e.track(s)
		}
		applied++
	}
	return applied
}
