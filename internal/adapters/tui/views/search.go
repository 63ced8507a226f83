package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/tui/styles"
	"quaderno/internal/application/commands"
)

// SearchKeyMap defines key bindings for the search view
type SearchKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

var SearchKeys = SearchKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// SearchModel fuzzy-searches page titles and lines
type SearchModel struct {
	ViewState
	session   Session
	input     textinput.Model
	results   []commands.SearchResult
	paginator *Paginator
}

// NewSearchModel creates a new search view model
func NewSearchModel(session Session) *SearchModel {
	input := textinput.New()
	input.Placeholder = "Search pages..."
	input.Focus()

	return &SearchModel{
		session:   session,
		input:     input,
		paginator: NewPaginator(12),
	}
}

// Init initializes the search view
func (m *SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// Reset clears the query and results
func (m *SearchModel) Reset() {
	m.input.SetValue("")
	m.results = nil
	m.paginator.Reset()
	m.input.Focus()
}

// Update handles messages for the search view
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case searchResultsMsg:
		if msg.query != m.input.Value() {
			return m, nil
		}
		m.results = msg.results
		m.paginator.Reset()
		m.paginator.SetTotal(len(m.results))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, SearchKeys.Cancel):
			return m, func() tea.Msg { return SwitchToPagesMsg{} }

		case key.Matches(msg, SearchKeys.Up):
			m.paginator.CursorUp()
			return m, nil

		case key.Matches(msg, SearchKeys.Down):
			m.paginator.CursorDown()
			return m, nil

		case key.Matches(msg, SearchKeys.Select):
			c := m.paginator.Cursor()
			if c >= 0 && c < len(m.results) {
				r := m.results[c]
				return m, func() tea.Msg { return OpenPageMsg{PageID: r.PageID, Line: max(r.Line, 0)} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	query := m.input.Value()
	if len(query) >= 2 {
		return m, tea.Batch(cmd, m.search(query))
	}
	m.results = nil
	m.paginator.Reset()
	return m, cmd
}

func (m *SearchModel) search(query string) tea.Cmd {
	return func() tea.Msg {
		pages, err := m.session.Pages(context.Background())
		if err != nil {
			return statusErr(err)
		}
		return searchResultsMsg{query: query, results: commands.FuzzySort(pages, query)}
	}
}

type searchResultsMsg struct {
	query   string
	results []commands.SearchResult
}

// View renders the search view
func (m *SearchModel) View() string {
	v := NewViewBuilder().
		Title("Search").
		Line(styles.InputFocused.Render(m.input.View())).
		BlankLine()

	query := m.input.Value()
	switch {
	case len(query) < 2:
		v.Muted("Type at least two characters")
	case len(m.results) == 0:
		v.Muted("No results found.")
	default:
		start, end := m.paginator.VisibleRange()
		for i := start; i < end; i++ {
			v.Line(renderSearchResult(m.results[i], query, i == m.paginator.Cursor()))
		}
		if m.paginator.TotalPages() > 1 {
			v.BlankLine().Muted(fmt.Sprintf("%d results", len(m.results)))
		}
	}

	return v.BlankLine().Help(SearchKeys.Up, SearchKeys.Down, SearchKeys.Select, SearchKeys.Cancel).String()
}

func renderSearchResult(r commands.SearchResult, query string, selected bool) string {
	var b strings.Builder
	if selected {
		b.WriteString(styles.LineSelected.Render(r.Title))
	} else {
		b.WriteString(styles.InputLabel.Render(r.Title))
	}
	if r.Line >= 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf(":%d  ", r.Line)))
		b.WriteString(highlight(r.Text, query))
	}
	return b.String()
}

// highlight marks the first case-insensitive occurrence of query in text.
// Fuzzy matches that are not contiguous are left plain.
func highlight(text, query string) string {
	i := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if query == "" || i < 0 {
		return text
	}
	j := i + len(query)
	if j > len(text) {
		return text
	}
	return text[:i] + styles.SearchMatch.Render(text[i:j]) + text[j:]
}
