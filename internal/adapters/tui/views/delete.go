package views

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/domain"
)

var DeleteKeys = struct {
	Confirm key.Binding
	Cancel  key.Binding
}{
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "delete"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "keep"),
	),
}

// DeleteModel asks before deleting a page
type DeleteModel struct {
	ViewState
	session Session
	target  domain.Page
}

// DeleteDoneMsg reports the outcome of a delete
type DeleteDoneMsg struct {
	Status StatusMsg
}

func NewDeleteModel(session Session) *DeleteModel {
	return &DeleteModel{session: session}
}

// SetTarget sets the page to delete
func (m *DeleteModel) SetTarget(p domain.Page) {
	m.target = p
}

func (m *DeleteModel) Init() tea.Cmd {
	return nil
}

func (m *DeleteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DeleteKeys.Cancel):
			return m, func() tea.Msg { return SwitchToPagesMsg{} }
		case key.Matches(msg, DeleteKeys.Confirm):
			target := m.target
			return m, func() tea.Msg { return m.delete(target) }
		}
	}
	return m, nil
}

func (m *DeleteModel) delete(p domain.Page) tea.Msg {
	if p.ID == "" {
		return StatusMsg{Text: "no page selected", Err: true}
	}
	if err := m.session.Delete(context.Background(), p.ID); err != nil {
		return DeleteDoneMsg{Status: statusErr(err)}
	}
	return DeleteDoneMsg{Status: StatusMsg{Text: fmt.Sprintf("Deleted page: %s", p.Title)}}
}

func (m *DeleteModel) View() string {
	kind := "page"
	if m.target.IsJournal {
		kind = "journal"
	}
	lines := "1 line"
	if n := len(m.target.Lines()); n != 1 {
		lines = fmt.Sprintf("%d lines", n)
	}

	return NewViewBuilder().
		Title("Delete "+m.target.Title).
		Line(fmt.Sprintf("This %s has %s.", kind, lines)).
		Muted("Lines it contributes to formulas on other pages disappear from them.").
		BlankLine().
		Help(DeleteKeys.Confirm, DeleteKeys.Cancel).
		String()
}
