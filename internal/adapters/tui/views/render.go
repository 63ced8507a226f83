package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"quaderno/internal/adapters/tui/styles"
	"quaderno/internal/domain"
)

// RenderMessage styles a status line; empty text renders as nothing
func RenderMessage(text string, isError bool) string {
	switch {
	case text == "":
		return ""
	case isError:
		return styles.ErrorMsg.Render(text)
	default:
		return styles.Success.Render(text)
	}
}

func RenderMuted(text string) string {
	return styles.MutedText.Render(text)
}

// RenderStatusMarker is the dot shown next to a page title: green when
// saved, amber while an edit is in flight, a red bang on conflict
func RenderStatusMarker(s domain.PageStatus) string {
	marker := "●"
	if s == domain.StatusConflict {
		marker = "!"
	}
	return lipgloss.NewStyle().Foreground(styles.StatusColor(s)).Render(marker)
}

func renderBindings(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, styles.HelpKey.Render(h.Key)+" "+styles.HelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}

// ViewBuilder accumulates the lines of a screen
type ViewBuilder struct {
	b strings.Builder
}

func NewViewBuilder() *ViewBuilder {
	return &ViewBuilder{}
}

// Title writes the heading, followed on the same line by any extra
// fragments such as a status marker
func (v *ViewBuilder) Title(title string, extra ...string) *ViewBuilder {
	v.b.WriteString(styles.Title.Render(title))
	if len(extra) > 0 {
		v.b.WriteString("  ")
		v.b.WriteString(strings.Join(extra, " "))
	}
	v.b.WriteString("\n\n")
	return v
}

func (v *ViewBuilder) Line(text string) *ViewBuilder {
	v.b.WriteString(text)
	v.b.WriteByte('\n')
	return v
}

func (v *ViewBuilder) BlankLine() *ViewBuilder {
	v.b.WriteByte('\n')
	return v
}

func (v *ViewBuilder) Muted(text string) *ViewBuilder {
	return v.Line(RenderMuted(text))
}

// Message writes text with a blank line after it, or nothing when empty
func (v *ViewBuilder) Message(text string, isError bool) *ViewBuilder {
	if text != "" {
		v.Line(RenderMessage(text, isError)).BlankLine()
	}
	return v
}

// Help writes the key hints for bindings that are enabled
func (v *ViewBuilder) Help(bindings ...key.Binding) *ViewBuilder {
	v.b.WriteString(renderBindings(bindings))
	return v
}

// String returns the screen inside the app frame
func (v *ViewBuilder) String() string {
	return styles.App.Render(v.b.String())
}
