package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/tui/styles"
	"quaderno/internal/application"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
)

// OutlineKeyMap defines key bindings for the outline view
type OutlineKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Edit     key.Binding
	Indent   key.Binding
	Outdent  key.Binding
	Prepend  key.Binding
	Delete   key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Yank     key.Binding
	External key.Binding
	Reload   key.Binding
	Back     key.Binding
	Help     key.Binding
}

var OutlineKeys = OutlineKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter", "i"),
		key.WithHelp("enter", "edit"),
	),
	Indent: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "indent"),
	),
	Outdent: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-tab", "outdent"),
	),
	Prepend: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "add child"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J"),
		key.WithHelp("J", "move down"),
	),
	Yank: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy"),
	),
	External: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "$EDITOR"),
	),
	Reload: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reload"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "h"),
		key.WithHelp("esc", "back"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// OutlineModel shows one page and edits it line by line
type OutlineModel struct {
	ViewState
	session Session
	pageID  string
	outline *Outline
	cursor  int
	editing bool
	input   textinput.Model
	copy    func(string) error
}

// NewOutlineModel creates a new outline view
func NewOutlineModel(session Session) *OutlineModel {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 0
	return &OutlineModel{
		session: session,
		input:   input,
		copy:    clipboard.WriteAll,
	}
}

// Open switches the view to a page, with the cursor on line
func (m *OutlineModel) Open(pageID string, line int) tea.Cmd {
	m.pageID = pageID
	m.outline = nil
	m.cursor = max(line, 0)
	m.editing = false
	m.input.Blur()
	m.ClearMessage()
	return tea.Batch(m.Reload(), m.selectFormula())
}

// PageID returns the page on display
func (m *OutlineModel) PageID() string {
	return m.pageID
}

// Editing reports whether a line is being typed in
func (m *OutlineModel) Editing() bool {
	return m.editing
}

// Init initializes the outline view
func (m *OutlineModel) Init() tea.Cmd {
	return nil
}

// Reload re-reads the page
func (m *OutlineModel) Reload() tea.Cmd {
	pageID := m.pageID
	return func() tea.Msg {
		o, err := m.session.Outline(context.Background(), pageID)
		if err != nil {
			return outlineErrMsg{pageID: pageID, err: err}
		}
		return outlineLoadedMsg{o}
	}
}

type outlineLoadedMsg struct {
	outline *Outline
}

type outlineErrMsg struct {
	pageID string
	err    error
}

// outlineEditedMsg reports a finished edit; cursor is where the cursor
// goes next
type outlineEditedMsg struct {
	err    error
	cursor int
}

// Update handles messages for the outline view
func (m *OutlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		m.input.Width = max(msg.Width-8, 20)
		return m, nil

	case outlineLoadedMsg:
		if msg.outline.Page.ID != m.pageID {
			return m, nil
		}
		m.outline = msg.outline
		m.clampCursor()
		return m, nil

	case outlineErrMsg:
		if msg.pageID != m.pageID {
			return m, nil
		}
		if errors.Is(msg.err, application.ErrNotFound) {
			return m, func() tea.Msg { return SwitchToPagesMsg{} }
		}
		m.SetMessage(msg.err.Error(), true)
		return m, nil

	case outlineEditedMsg:
		if msg.err != nil {
			m.SetMessage(msg.err.Error(), true)
		} else {
			m.ClearMessage()
		}
		m.cursor = msg.cursor
		return m, tea.Batch(m.Reload(), m.selectFormula())

	case tea.KeyMsg:
		if m.editing {
			return m, m.handleEditingKey(msg)
		}
		return m, m.handleKey(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *OutlineModel) handleEditingKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		return m.setLine(m.cursor, m.input.Value())
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *OutlineModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, OutlineKeys.Back):
		m.cursor = -1
		return tea.Batch(m.selectFormula(), func() tea.Msg { return SwitchToPagesMsg{} })
	case key.Matches(msg, OutlineKeys.Help):
		return func() tea.Msg { return SwitchToHelpMsg{} }
	case key.Matches(msg, OutlineKeys.External):
		pageID := m.pageID
		return func() tea.Msg { return OpenEditorMsg{PageID: pageID} }
	case key.Matches(msg, OutlineKeys.Reload):
		return m.reloadFromStore()
	}

	if m.outline == nil {
		return nil
	}

	switch {
	case key.Matches(msg, OutlineKeys.Up):
		if m.cursor > 0 {
			m.cursor--
			return m.selectFormula()
		}
	case key.Matches(msg, OutlineKeys.Down):
		if m.cursor < len(m.outline.Lines)-1 {
			m.cursor++
			return m.selectFormula()
		}
	case key.Matches(msg, OutlineKeys.Edit):
		return m.startEditing()
	case key.Matches(msg, OutlineKeys.Indent):
		return m.applyEdit(reconcile.OpIndent, m.cursor)
	case key.Matches(msg, OutlineKeys.Outdent):
		return m.applyEdit(reconcile.OpOutdent, m.cursor)
	case key.Matches(msg, OutlineKeys.Delete):
		return m.applyEdit(reconcile.OpDelete, max(m.cursor-1, 0))
	case key.Matches(msg, OutlineKeys.Prepend):
		return m.applyEdit(reconcile.OpPrependChild, m.cursor+1)
	case key.Matches(msg, OutlineKeys.MoveUp):
		return m.applyEdit(reconcile.OpMoveUp, m.cursor)
	case key.Matches(msg, OutlineKeys.MoveDown):
		return m.applyEdit(reconcile.OpMoveDown, m.cursor)
	case key.Matches(msg, OutlineKeys.Yank):
		return m.yank()
	}
	return nil
}

func (m *OutlineModel) startEditing() tea.Cmd {
	line, ok := m.currentLine()
	if !ok {
		return nil
	}
	value := line.Raw
	if line.Kind.IsFormula() {
		// the cached answer is recomputed after the edit
		value = "- " + domain.FormatFormula(line.Text, "")
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.editing = true
	return m.input.Focus()
}

func (m *OutlineModel) setLine(line int, content string) tea.Cmd {
	pageID := m.pageID
	return func() tea.Msg {
		err := m.session.SetLine(context.Background(), pageID, line, content)
		return outlineEditedMsg{err: err, cursor: line}
	}
}

func (m *OutlineModel) applyEdit(op reconcile.EditOp, next int) tea.Cmd {
	pageID, line := m.pageID, m.cursor
	return func() tea.Msg {
		err := m.session.ApplyEdit(context.Background(), pageID, op, line)
		if err != nil {
			return outlineEditedMsg{err: err, cursor: line}
		}
		if op == reconcile.OpMoveUp || op == reconcile.OpMoveDown {
			return outlineEditedMsg{err: fmt.Errorf("%s is not supported yet", op), cursor: line}
		}
		return outlineEditedMsg{cursor: next}
	}
}

func (m *OutlineModel) reloadFromStore() tea.Cmd {
	pageID, line := m.pageID, m.cursor
	return func() tea.Msg {
		err := m.session.Reload(context.Background(), pageID)
		return outlineEditedMsg{err: err, cursor: line}
	}
}

// selectFormula tells the engine which formula, if any, is under the cursor
func (m *OutlineModel) selectFormula() tea.Cmd {
	pageID, line := m.pageID, m.cursor
	return func() tea.Msg {
		if err := m.session.SelectFormula(context.Background(), pageID, line); err != nil {
			return outlineErrMsg{pageID: pageID, err: err}
		}
		return nil
	}
}

func (m *OutlineModel) yank() tea.Cmd {
	line, ok := m.currentLine()
	if !ok {
		return nil
	}
	text := domain.BulletText(line.Raw)
	if err := m.copy(text); err != nil {
		m.SetMessage(fmt.Sprintf("copy failed: %v", err), true)
		return nil
	}
	m.SetMessage("Copied: "+text, false)
	return nil
}

func (m *OutlineModel) currentLine() (OutlineLine, bool) {
	if m.outline == nil || m.cursor < 0 || m.cursor >= len(m.outline.Lines) {
		return OutlineLine{}, false
	}
	return m.outline.Lines[m.cursor], true
}

func (m *OutlineModel) clampCursor() {
	n := len(m.outline.Lines)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the outline
func (m *OutlineModel) View() string {
	if m.outline == nil {
		return NewViewBuilder().Muted("Loading...").String()
	}

	p := m.outline.Page
	v := NewViewBuilder().
		Title(p.Title, RenderStatusMarker(p.Status), RenderMuted(fmt.Sprintf("rev %d", p.RevisionNumber))).
		Message(m.Message, m.MessageErr)

	for i, line := range m.outline.Lines {
		v.Line(m.renderLine(i, line))
	}

	v.BlankLine()
	if m.editing {
		v.Help(LineKeys.Submit, LineKeys.Cancel)
	} else {
		v.Help(OutlineKeys.Edit, OutlineKeys.Indent, OutlineKeys.Outdent, OutlineKeys.Prepend,
			OutlineKeys.Delete, OutlineKeys.Yank, OutlineKeys.External, OutlineKeys.Back)
	}
	return v.String()
}

func (m *OutlineModel) renderLine(i int, line OutlineLine) string {
	indent := strings.Repeat("  ", line.Depth)
	bullet := styles.Bullet.Render("• ")
	if line.Kind == domain.KindText {
		bullet = "  "
	}

	if m.editing && i == m.cursor {
		return indent + m.input.View()
	}

	var text string
	switch line.Kind {
	case domain.KindFormulaDisplay:
		text = styles.LineFormula.Render("="+line.Text) + renderResult(line.Result)
	case domain.KindFormulaEditor:
		text = styles.LineFormulaEditor.Render("=" + line.Text)
	default:
		text = styles.LineStyle(line.Kind).Render(line.Text)
	}
	if i == m.cursor {
		text = styles.LineSelected.Render(domain.BulletText(line.Raw))
	}
	return indent + bullet + text
}

func renderResult(result string) string {
	if result == "" {
		return ""
	}
	return "  " + styles.LineResult.Render("→ "+result)
}
