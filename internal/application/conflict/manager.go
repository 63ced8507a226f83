package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Outcome is what HandleConflict decided
type Outcome int

const (
	// OutcomeConflict: the page is frozen in Conflict until reloaded
	OutcomeConflict Outcome = iota
	// OutcomeDropped: an empty journal update was discarded silently
	OutcomeDropped
	// OutcomeDuplicateTitle: an empty page collided with an existing title and was discarded
	OutcomeDuplicateTitle
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConflict:
		return "conflict"
	case OutcomeDropped:
		return "dropped"
	case OutcomeDuplicateTitle:
		return "duplicate-title"
	default:
		return "unknown"
	}
}

// StatusSetter is the part of the page state machine the manager drives
type StatusSetter interface {
	MarkConflict(pageID string) error
}

// Manager reacts to conflict signals from the page store
type Manager struct {
	queue  ports.OfflineQueue
	pages  StatusSetter
	alerts ports.Alerter
	logger *slog.Logger
}

// NewManager creates a Manager
func NewManager(queue ports.OfflineQueue, pages StatusSetter, alerts ports.Alerter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{queue: queue, pages: pages, alerts: alerts, logger: logger}
}

// HandleConflict decides what to do with a page whose write was refused.
// Only placeholder content is ever discarded; anything else keeps its
// queued update and blocks the page until the user reloads it.
func (m *Manager) HandleConflict(ctx context.Context, pageID string, code domain.ErrorCode) (Outcome, error) {
	queued, err := m.queue.Get(ctx, pageID)
	if err != nil {
		return OutcomeConflict, fmt.Errorf("failed to read queued update: %w", err)
	}

	if queued != nil && domain.IsDefaultContent(queued.Value) {
		switch {
		case queued.IsJournal:
			if err := m.queue.Delete(ctx, pageID); err != nil {
				return OutcomeConflict, fmt.Errorf("failed to drop queued update: %w", err)
			}
			m.logger.Info("dropped empty journal update", "page", pageID, "title", queued.Title)
			return OutcomeDropped, nil

		case code == domain.CodeUniqueViolation:
			if err := m.queue.Delete(ctx, pageID); err != nil {
				return OutcomeConflict, fmt.Errorf("failed to drop queued update: %w", err)
			}
			m.logger.Warn("dropped page with duplicate title", "page", pageID, "title", queued.Title)
			m.alert(ports.Alert{
				PageID:   pageID,
				Message:  fmt.Sprintf("A page titled %q already exists.", queued.Title),
				Blocking: true,
			})
			return OutcomeDuplicateTitle, nil
		}
	}

	if err := m.pages.MarkConflict(pageID); err != nil {
		return OutcomeConflict, err
	}
	m.logger.Warn("page in conflict", "page", pageID, "code", code)
	m.alert(ports.Alert{
		PageID:   pageID,
		Message:  "This page was changed elsewhere. Reload it to continue editing.",
		Blocking: true,
	})
	return OutcomeConflict, nil
}

func (m *Manager) alert(a ports.Alert) {
	if m.alerts != nil {
		m.alerts.Alert(a)
	}
}
