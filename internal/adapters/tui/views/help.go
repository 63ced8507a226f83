package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/tui/styles"
)

var helpClose = key.NewBinding(
	key.WithKeys("esc", "q", "?"),
	key.WithHelp("esc/q/?", "close"),
)

type helpSection struct {
	title    string
	bindings []key.Binding
}

// the help screen lists the live key maps, so it cannot drift from them
var helpSections = []helpSection{
	{"Pages", []key.Binding{
		PagesKeys.Down, PagesKeys.Up, PagesKeys.NextPage, PagesKeys.PrevPage, PagesKeys.Open,
		PagesKeys.New, PagesKeys.Journal, PagesKeys.Rename, PagesKeys.Delete,
		PagesKeys.Search, PagesKeys.Sync, PagesKeys.Quit,
	}},
	{"Outline", []key.Binding{
		OutlineKeys.Edit, OutlineKeys.Indent, OutlineKeys.Outdent, OutlineKeys.Prepend,
		OutlineKeys.Delete, OutlineKeys.MoveUp, OutlineKeys.MoveDown, OutlineKeys.Yank,
		OutlineKeys.External, OutlineKeys.Reload, OutlineKeys.Back,
	}},
}

var formulaExamples = [][2]string{
	{"- =find(TODO)", "lines matching a regex, grouped by page"},
	{"- =count(DONE)", "number of matching lines"},
	{"- =tagged(errand)", "lines carrying #errand"},
	{"- =linked(Home)", "lines mentioning [[Home]]"},
	{"- =any question", "answered by Claude when the CLI is installed"},
}

// HelpModel lists every key binding and the formula forms
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if key.Matches(msg, helpClose) {
			return m, func() tea.Msg { return SwitchToPagesMsg{} }
		}
	}
	return m, nil
}

// View renders the help view
func (m *HelpModel) View() string {
	v := NewViewBuilder().Title("Quaderno Help")

	for _, s := range helpSections {
		v.Line(styles.InputLabel.Render(s.title))
		for _, b := range s.bindings {
			h := b.Help()
			v.Line(helpRow(h.Key, h.Desc))
		}
		v.BlankLine()
	}

	v.Line(styles.InputLabel.Render("Formulas"))
	for _, ex := range formulaExamples {
		v.Line(fmt.Sprintf("  %-22s%s", ex[0], RenderMuted(ex[1])))
	}

	return v.BlankLine().Help(helpClose).String()
}

func helpRow(keys, desc string) string {
	return "  " + styles.HelpKey.Render(fmt.Sprintf("%-14s", keys)) + styles.HelpDesc.Render(strings.ToLower(desc))
}
