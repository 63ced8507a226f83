package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/filesystem"
	"quaderno/internal/adapters/sqlite"
	"quaderno/internal/adapters/tui/views"
	"quaderno/internal/application"
	"quaderno/internal/application/formula"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// stubSession serves a fixed page list; the views tests cover editing
type stubSession struct {
	views.Session
	pages []domain.Page
}

func (s *stubSession) Pages(context.Context) ([]domain.Page, error) { return s.pages, nil }

func (s *stubSession) Outline(_ context.Context, pageID string) (*views.Outline, error) {
	for _, p := range s.pages {
		if p.ID == pageID {
			return views.NewOutline(p, domain.ParseDocument(p.Value), -1), nil
		}
	}
	return nil, &application.NotFoundError{Kind: "page", Ref: pageID}
}

func (s *stubSession) SelectFormula(context.Context, string, int) error { return nil }

func newTestApp() (*App, *Alerts) {
	alerts := NewAlerts(4)
	session := &stubSession{pages: []domain.Page{{ID: "g", Title: "Groceries", Value: "- milk"}}}
	return NewApp(session, nil, alerts, nil), alerts
}

func runCmd(a *App, cmd tea.Cmd) {
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				runCmd(a, c)
			}
			return
		}
		if msg == nil {
			return
		}
		_, cmd = a.Update(msg)
	}
}

func TestApp_BlockingAlert(t *testing.T) {
	a, alerts := newTestApp()

	alerts.Alert(ports.Alert{PageID: "g", Message: "Groceries was changed elsewhere", Blocking: true})
	a.Update(alerts.wait())

	if !strings.Contains(a.View(), "changed elsewhere") {
		t.Fatal("alert not shown")
	}

	// keys are swallowed until the alert is dismissed
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if a.state != ViewPages {
		t.Errorf("state = %v, key leaked past the alert", a.state)
	}

	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if a.alert != nil {
		t.Error("alert not dismissed")
	}
}

func TestApp_NonBlockingAlertGoesToStatus(t *testing.T) {
	a, alerts := newTestApp()

	alerts.Alert(ports.Alert{Message: "store unreachable, queued"})
	a.Update(alerts.wait())

	if a.alert != nil || a.status.Text != "store unreachable, queued" {
		t.Errorf("alert = %v, status = %+v", a.alert, a.status)
	}
}

func TestAlerts_DropWhenFull(t *testing.T) {
	alerts := NewAlerts(1)
	done := make(chan struct{})
	go func() {
		alerts.Alert(ports.Alert{Message: "first"})
		alerts.Alert(ports.Alert{Message: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Alert blocked on a full buffer")
	}
	if got := alerts.wait().(alertMsg); got.alert.Message != "first" {
		t.Errorf("got %q", got.alert.Message)
	}
}

func TestApp_ViewSwitching(t *testing.T) {
	tests := []struct {
		name string
		msgs []tea.Msg
		want ViewState
	}{
		{name: "open page", msgs: []tea.Msg{views.OpenPageMsg{PageID: "g"}}, want: ViewOutline},
		{name: "help returns to the outline", msgs: []tea.Msg{views.OpenPageMsg{PageID: "g"}, views.SwitchToHelpMsg{}, views.SwitchToPagesMsg{}}, want: ViewOutline},
		{name: "help returns to pages", msgs: []tea.Msg{views.SwitchToHelpMsg{}, views.SwitchToPagesMsg{}}, want: ViewPages},
		{name: "created page opens", msgs: []tea.Msg{views.SwitchToCreateMsg{}, views.TitleSavedMsg{Page: domain.Page{ID: "g"}, Created: true}}, want: ViewOutline},
		{name: "rename returns to pages", msgs: []tea.Msg{views.SwitchToRenameMsg{}, views.TitleSavedMsg{Page: domain.Page{ID: "g"}}}, want: ViewPages},
		{name: "delete confirm", msgs: []tea.Msg{views.SwitchToDeleteMsg{Page: domain.Page{ID: "g"}}}, want: ViewDelete},
		{name: "delete done", msgs: []tea.Msg{views.SwitchToDeleteMsg{}, views.DeleteDoneMsg{}}, want: ViewPages},
		{name: "search", msgs: []tea.Msg{views.SwitchToSearchMsg{}}, want: ViewSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp()
			for _, msg := range tt.msgs {
				a.Update(msg)
			}
			if a.state != tt.want {
				t.Errorf("state = %v, want %v", a.state, tt.want)
			}
		})
	}
}

func TestApp_NoEditor(t *testing.T) {
	a, _ := newTestApp()
	_, cmd := a.Update(views.OpenEditorMsg{PageID: "g"})
	runCmd(a, cmd)

	if !a.status.Err || !strings.Contains(a.status.Text, "no editor") {
		t.Errorf("status = %+v", a.status)
	}
}

func newLoopSession(t *testing.T) (*LoopSession, ports.PageStore) {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.Open(filepath.Join(dir, "pages.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	queue, err := filesystem.NewQueue(filepath.Join(dir, "queue"))
	if err != nil {
		t.Fatal(err)
	}

	engine := reconcile.NewEngine(store, queue, formula.NewService(nil, nil), nil, reconcile.Config{UserID: "ada"})
	if err := engine.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	loop := reconcile.NewLoop(engine, reconcile.LoopConfig{DebounceInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	return NewLoopSession(loop, store, "ada"), store
}

func TestLoopSession(t *testing.T) {
	ctx := context.Background()
	s, store := newLoopSession(t)

	p, err := s.CreatePage(ctx, "Groceries")
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := s.SetLine(ctx, p.ID, 0, "- milk"); err != nil {
		t.Fatalf("SetLine: %v", err)
	}

	q, err := s.CreatePage(ctx, "Count")
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := s.SetLine(ctx, q.ID, 0, "- =count(milk)"); err != nil {
		t.Fatalf("SetLine: %v", err)
	}

	var outline *views.Outline
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		outline, err = s.Outline(ctx, q.ID)
		if err != nil {
			t.Fatalf("Outline: %v", err)
		}
		if outline.Lines[0].Result != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := outline.Lines[0]; got.Kind != domain.KindFormulaDisplay || got.Result != "1" {
		t.Errorf("formula line = %+v", got)
	}

	if err := s.SelectFormula(ctx, q.ID, 0); err != nil {
		t.Fatalf("SelectFormula: %v", err)
	}
	outline, _ = s.Outline(ctx, q.ID)
	if outline.Lines[0].Kind != domain.KindFormulaEditor {
		t.Errorf("selected formula kind = %v", outline.Lines[0].Kind)
	}

	waitSettled(t, s)
	if err := s.Rename(ctx, p.ID, "Shopping"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	pages, _ := s.Pages(ctx)
	if !hasTitle(pages, "Shopping") || hasTitle(pages, "Groceries") {
		t.Errorf("pages after rename = %v", titles(pages))
	}

	if err := s.Delete(ctx, q.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Outline(ctx, q.ID); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("Outline of deleted page: %v", err)
	}
	live, err := store.Fetch(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	if hasTitle(live, "Count") {
		t.Error("deleted page still listed by the store")
	}
}

func TestLoopSession_JournalIsReused(t *testing.T) {
	ctx := context.Background()
	s, _ := newLoopSession(t)

	first, err := s.OpenJournal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.OpenJournal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || !first.IsJournal {
		t.Errorf("first = %+v, second = %+v", first, second)
	}

	pages, _ := s.Pages(ctx)
	if len(pages) != 1 {
		t.Errorf("got %d pages, want 1", len(pages))
	}
}

func waitSettled(t *testing.T, s *LoopSession) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pages, err := s.Pages(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		settled := true
		for _, p := range pages {
			settled = settled && p.Status == domain.StatusQuiescent
		}
		if settled {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("pages never settled")
}

func hasTitle(pages []domain.Page, title string) bool {
	for _, p := range pages {
		if p.Title == title {
			return true
		}
	}
	return false
}

func titles(pages []domain.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Title
	}
	return out
}
