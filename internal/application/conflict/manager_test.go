package conflict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

type memQueue map[string]ports.QueuedUpdate

func (q memQueue) Get(_ context.Context, id string) (*ports.QueuedUpdate, error) {
	u, ok := q[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (q memQueue) Put(_ context.Context, u ports.QueuedUpdate) error {
	q[u.PageID] = u
	return nil
}

func (q memQueue) Delete(_ context.Context, id string) error {
	delete(q, id)
	return nil
}

func (q memQueue) List(context.Context) ([]ports.QueuedUpdate, error) {
	var out []ports.QueuedUpdate
	for _, u := range q {
		out = append(out, u)
	}
	return out, nil
}

type statusRecorder struct {
	conflicted []string
}

func (s *statusRecorder) MarkConflict(id string) error {
	s.conflicted = append(s.conflicted, id)
	return nil
}

type alertRecorder struct {
	alerts []ports.Alert
}

func (a *alertRecorder) Alert(al ports.Alert) {
	a.alerts = append(a.alerts, al)
}

func queued(id, title, value string, journal bool) ports.QueuedUpdate {
	return ports.QueuedUpdate{SaveRequest: ports.SaveRequest{
		PageID: id, Title: title, Value: value, IsJournal: journal, ExpectedRevision: 5,
	}}
}

func TestHandleConflict(t *testing.T) {
	tests := []struct {
		name         string
		queued       *ports.QueuedUpdate
		code         domain.ErrorCode
		wantOutcome  Outcome
		wantQueued   bool
		wantConflict bool
		wantAlert    bool
	}{
		{
			name:        "empty journal is dropped silently",
			queued:      ptr(queued("j", "2026-10-15", domain.DefaultPageValue, true)),
			code:        domain.CodeStaleRevision,
			wantOutcome: OutcomeDropped,
		},
		{
			name:        "empty page with duplicate title is dropped with alert",
			queued:      ptr(queued("n", "Groceries", "", false)),
			code:        domain.CodeUniqueViolation,
			wantOutcome: OutcomeDuplicateTitle,
			wantAlert:   true,
		},
		{
			name:         "empty page with stale revision conflicts",
			queued:       ptr(queued("n", "Groceries", "-", false)),
			code:         domain.CodeStaleRevision,
			wantOutcome:  OutcomeConflict,
			wantQueued:   true,
			wantConflict: true,
			wantAlert:    true,
		},
		{
			// stale save of real content must never discard data
			name:         "content update conflicts",
			queued:       ptr(queued("p", "Notes", "- buy milk", false)),
			code:         domain.CodeStaleRevision,
			wantOutcome:  OutcomeConflict,
			wantQueued:   true,
			wantConflict: true,
			wantAlert:    true,
		},
		{
			name:         "journal with content conflicts",
			queued:       ptr(queued("j", "2026-10-15", "- met Ana", true)),
			code:         domain.CodeStaleRevision,
			wantOutcome:  OutcomeConflict,
			wantQueued:   true,
			wantConflict: true,
			wantAlert:    true,
		},
		{
			name:         "nothing queued conflicts",
			code:         domain.CodeStaleRevision,
			wantOutcome:  OutcomeConflict,
			wantConflict: true,
			wantAlert:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := memQueue{}
			pageID := "p"
			if tt.queued != nil {
				q[tt.queued.PageID] = *tt.queued
				pageID = tt.queued.PageID
			}
			status := &statusRecorder{}
			alerts := &alertRecorder{}

			outcome, err := NewManager(q, status, alerts, nil).HandleConflict(context.Background(), pageID, tt.code)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, outcome)
			_, stillQueued := q[pageID]
			assert.Equal(t, tt.wantQueued, stillQueued, "queued update retained")
			assert.Equal(t, tt.wantConflict, len(status.conflicted) == 1, "page marked conflict")
			if tt.wantAlert {
				require.Len(t, alerts.alerts, 1)
				assert.True(t, alerts.alerts[0].Blocking)
			} else {
				assert.Empty(t, alerts.alerts)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
