package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/tui/styles"
)

// LineKeys are the bindings shared by every single-line editor
var LineKeys = struct {
	Submit key.Binding
	Cancel key.Binding
}{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// LineInput is a labelled one-line text field. When validate is set the
// current value is checked on every keystroke and the error is shown under
// the field; Valid reports whether the last check passed.
type LineInput struct {
	label    string
	input    textinput.Model
	validate func(string) error
	err      error
}

// NewLineInput creates a focused field
func NewLineInput(label, placeholder string, limit int, validate func(string) error) *LineInput {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Focus()
	return &LineInput{label: label, input: in, validate: validate}
}

func (l *LineInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards msg to the text field and revalidates
func (l *LineInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	l.check()
	return cmd
}

// Value is the trimmed content
func (l *LineInput) Value() string {
	return strings.TrimSpace(l.input.Value())
}

// SetValue replaces the content and moves the cursor to its end
func (l *LineInput) SetValue(s string) {
	l.input.SetValue(s)
	l.input.CursorEnd()
	l.check()
}

// Reset empties the field without flagging it invalid
func (l *LineInput) Reset() {
	l.input.SetValue("")
	l.input.Focus()
	l.err = nil
}

// Valid runs the validator on the current value
func (l *LineInput) Valid() bool {
	l.check()
	return l.err == nil
}

func (l *LineInput) check() {
	if l.validate == nil {
		return
	}
	l.err = l.validate(l.Value())
}

// View renders the label, the field and any validation error
func (l *LineInput) View() string {
	var b strings.Builder
	b.WriteString(styles.InputLabel.Render(l.label))
	b.WriteString("\n")
	b.WriteString(styles.InputFocused.Render(l.input.View()))
	if l.err != nil && l.input.Value() != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render(l.err.Error()))
	}
	return b.String()
}
