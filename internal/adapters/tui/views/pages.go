package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/tui/styles"
	"quaderno/internal/domain"
)

// PagesKeyMap defines key bindings for the page list
type PagesKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Open     key.Binding
	New      key.Binding
	Journal  key.Binding
	Rename   key.Binding
	Delete   key.Binding
	Search   key.Binding
	Sync     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var PagesKeys = PagesKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("right", "pgdown"),
		key.WithHelp("→", "next"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("left", "pgup"),
		key.WithHelp("←", "prev"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter", "l"),
		key.WithHelp("enter", "open"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Journal: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Sync: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sync"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// PagesModel lists every page with its sync status
type PagesModel struct {
	ViewState
	session   Session
	pages     []domain.Page
	paginator *Paginator
}

// NewPagesModel creates a new page list
func NewPagesModel(session Session) *PagesModel {
	return &PagesModel{
		session:   session,
		paginator: NewPaginator(15),
	}
}

// Init loads the page list
func (m *PagesModel) Init() tea.Cmd {
	return m.Reload()
}

// Reload re-reads the page list
func (m *PagesModel) Reload() tea.Cmd {
	return func() tea.Msg {
		pages, err := m.session.Pages(context.Background())
		if err != nil {
			return statusErr(err)
		}
		return pagesLoadedMsg{pages}
	}
}

type pagesLoadedMsg struct {
	pages []domain.Page
}

// Selected returns the page under the cursor
func (m *PagesModel) Selected() (domain.Page, bool) {
	c := m.paginator.Cursor()
	if c < 0 || c >= len(m.pages) {
		return domain.Page{}, false
	}
	return m.pages[c], true
}

// SelectID moves the cursor to the page with the given ID
func (m *PagesModel) SelectID(id string) {
	for i, p := range m.pages {
		if p.ID == id {
			m.paginator.SetCursor(i)
			return
		}
	}
}

// Update handles messages for the page list
func (m *PagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		m.paginator.SetPageSize(msg.Height - 10)
		return m, nil

	case pagesLoadedMsg:
		selected, _ := m.Selected()
		m.pages = msg.pages
		m.paginator.SetTotal(len(m.pages))
		if selected.ID != "" {
			m.SelectID(selected.ID)
		}
		return m, nil

	case journalOpenedMsg:
		return m, func() tea.Msg { return OpenPageMsg{PageID: msg.page.ID} }

	case syncedMsg:
		m.SetMessage(fmt.Sprintf("Synced, %d queued updates sent", msg.flushed), false)
		return m, m.Reload()

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *PagesModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, PagesKeys.Quit):
		return tea.Quit
	case key.Matches(msg, PagesKeys.Up):
		m.paginator.CursorUp()
	case key.Matches(msg, PagesKeys.Down):
		m.paginator.CursorDown()
	case key.Matches(msg, PagesKeys.NextPage):
		m.paginator.NextPage()
	case key.Matches(msg, PagesKeys.PrevPage):
		m.paginator.PrevPage()
	case key.Matches(msg, PagesKeys.Open):
		if p, ok := m.Selected(); ok {
			return func() tea.Msg { return OpenPageMsg{PageID: p.ID} }
		}
	case key.Matches(msg, PagesKeys.New):
		return func() tea.Msg { return SwitchToCreateMsg{} }
	case key.Matches(msg, PagesKeys.Journal):
		return m.openJournal
	case key.Matches(msg, PagesKeys.Rename):
		if p, ok := m.Selected(); ok {
			return func() tea.Msg { return SwitchToRenameMsg{Page: p} }
		}
	case key.Matches(msg, PagesKeys.Delete):
		if p, ok := m.Selected(); ok {
			return func() tea.Msg { return SwitchToDeleteMsg{Page: p} }
		}
	case key.Matches(msg, PagesKeys.Search):
		return func() tea.Msg { return SwitchToSearchMsg{} }
	case key.Matches(msg, PagesKeys.Sync):
		m.SetMessage("Syncing...", false)
		return m.sync
	case key.Matches(msg, PagesKeys.Help):
		return func() tea.Msg { return SwitchToHelpMsg{} }
	}
	return nil
}

type journalOpenedMsg struct {
	page domain.Page
}

func (m *PagesModel) openJournal() tea.Msg {
	p, err := m.session.OpenJournal(context.Background())
	if err != nil {
		return statusErr(err)
	}
	return journalOpenedMsg{p}
}

type syncedMsg struct {
	flushed int
}

func (m *PagesModel) sync() tea.Msg {
	n, err := m.session.Sync(context.Background())
	if err != nil {
		return statusErr(err)
	}
	return syncedMsg{n}
}

// View renders the page list
func (m *PagesModel) View() string {
	v := NewViewBuilder().Title("Quaderno").Message(m.Message, m.MessageErr)

	if len(m.pages) == 0 {
		v.Muted("No pages yet. Press n to create one or t for today's journal.")
	}

	start, end := m.paginator.VisibleRange()
	for i := start; i < end; i++ {
		v.Line(m.renderPage(m.pages[i], i == m.paginator.Cursor()))
	}

	if m.paginator.TotalPages() > 1 {
		v.BlankLine().Muted(fmt.Sprintf("page %d/%d", m.paginator.CurrentPage(), m.paginator.TotalPages()))
	}

	v.BlankLine().Help(
		PagesKeys.Open, PagesKeys.New, PagesKeys.Journal, PagesKeys.Rename,
		PagesKeys.Delete, PagesKeys.Search, PagesKeys.Sync, PagesKeys.Help, PagesKeys.Quit,
	)
	return v.String()
}

func (m *PagesModel) renderPage(p domain.Page, selected bool) string {
	var b strings.Builder
	b.WriteString(RenderStatusMarker(p.Status))
	b.WriteString(" ")

	title := p.Title
	if selected {
		title = styles.LineSelected.Render(title)
	} else if p.IsJournal {
		title = styles.PageJournal.Render(title)
	}
	b.WriteString(title)

	if p.Status != domain.StatusQuiescent {
		b.WriteString(styles.MutedText.Render("  " + p.Status.String()))
	}
	return b.String()
}
