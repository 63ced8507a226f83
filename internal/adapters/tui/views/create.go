package views

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/application"
	"quaderno/internal/domain"
)

// TitleMode selects what the title form does on submit
type TitleMode int

const (
	TitleCreate TitleMode = iota
	TitleRename
)

// TitleFormModel asks for a page title, either for a new page or to
// rename an existing one
type TitleFormModel struct {
	ViewState
	session Session
	title   *LineInput
	mode    TitleMode
	target  domain.Page
}

// NewTitleFormModel creates a new title form
func NewTitleFormModel(session Session) *TitleFormModel {
	return &TitleFormModel{
		session: session,
		title: NewLineInput("Title", "Groceries", 200, func(s string) error {
			return application.ValidateTitle("title", s)
		}),
	}
}

// StartCreate prepares the form for a new page
func (m *TitleFormModel) StartCreate() {
	m.mode = TitleCreate
	m.target = domain.Page{}
	m.title.Reset()
	m.ClearMessage()
}

// StartRename prepares the form to rename p
func (m *TitleFormModel) StartRename(p domain.Page) {
	m.mode = TitleRename
	m.target = p
	m.title.Reset()
	m.title.SetValue(p.Title)
	m.ClearMessage()
}

// Init initializes the form
func (m *TitleFormModel) Init() tea.Cmd {
	return m.title.Init()
}

// TitleSavedMsg reports a created or renamed page
type TitleSavedMsg struct {
	Page    domain.Page
	Created bool
	Status  StatusMsg
}

type titleErrMsg struct {
	err error
}

// Update handles messages for the form
func (m *TitleFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case titleErrMsg:
		m.SetMessage(msg.err.Error(), true)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, LineKeys.Cancel):
			return m, func() tea.Msg { return SwitchToPagesMsg{} }
		case key.Matches(msg, LineKeys.Submit):
			if !m.title.Valid() {
				return m, nil
			}
			return m, m.submit(m.title.Value())
		}
	}

	return m, m.title.Update(msg)
}

func (m *TitleFormModel) submit(title string) tea.Cmd {
	mode, target := m.mode, m.target
	return func() tea.Msg {
		ctx := context.Background()
		if mode == TitleRename {
			if title == target.Title {
				return SwitchToPagesMsg{}
			}
			if err := m.session.Rename(ctx, target.ID, title); err != nil {
				return titleErrMsg{err}
			}
			target.Title = title
			return TitleSavedMsg{Page: target, Status: StatusMsg{Text: fmt.Sprintf("Renamed to %s", title)}}
		}

		p, err := m.session.CreatePage(ctx, title)
		if err != nil {
			return titleErrMsg{err}
		}
		return TitleSavedMsg{Page: p, Created: true, Status: StatusMsg{Text: fmt.Sprintf("Created page: %s", p.Title)}}
	}
}

// View renders the form
func (m *TitleFormModel) View() string {
	heading := "New Page"
	if m.mode == TitleRename {
		heading = "Rename " + m.target.Title
	}

	return NewViewBuilder().
		Title(heading).
		Message(m.Message, m.MessageErr).
		Line(m.title.View()).
		BlankLine().
		Help(LineKeys.Submit, LineKeys.Cancel).
		String()
}
