package styles

import (
	"github.com/charmbracelet/lipgloss"

	"quaderno/internal/domain"
)

var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#10B981")
	Muted     = lipgloss.Color("#6B7280")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
	Link      = lipgloss.Color("#60A5FA")
	White     = lipgloss.Color("#FFFFFF")
	Black     = lipgloss.Color("#000000")
)

var (
	App   = lipgloss.NewStyle().Padding(1, 2)
	Title = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	MutedText = lipgloss.NewStyle().Foreground(Muted)
	Success   = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	ErrorMsg  = lipgloss.NewStyle().Foreground(Error).Bold(true)

	AlertBlocking = lipgloss.NewStyle().
			Background(Error).
			Foreground(White).
			Bold(true).
			Padding(0, 1)
)

// Outline
var (
	LineItem          = lipgloss.NewStyle()
	LineFormula       = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	LineFormulaEditor = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	LineResult        = lipgloss.NewStyle().Foreground(Secondary)
	LinePageGroup     = lipgloss.NewStyle().Foreground(Link).Underline(true)
	LineMaterialized  = lipgloss.NewStyle().Foreground(Muted).Italic(true)

	LineSelected = lipgloss.NewStyle().
			Background(Primary).
			Foreground(White).
			Bold(true)

	Bullet      = lipgloss.NewStyle().Foreground(Muted)
	PageJournal = lipgloss.NewStyle().Foreground(Secondary)
	SearchMatch = lipgloss.NewStyle().Background(Warning).Foreground(Black)
)

// Forms and key hints
var (
	InputLabel = lipgloss.NewStyle().Foreground(Secondary).Bold(true)

	InputFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	HelpKey       = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpDesc      = lipgloss.NewStyle().Foreground(Muted)
	HelpSeparator = lipgloss.NewStyle().Foreground(Muted).SetString(" • ")
)

// LineStyle returns the style for an outline line of the given kind
func LineStyle(kind domain.NodeKind) lipgloss.Style {
	switch kind {
	case domain.KindFormulaDisplay:
		return LineFormula
	case domain.KindFormulaEditor:
		return LineFormulaEditor
	case domain.KindPageGroup:
		return LinePageGroup
	case domain.KindMaterialized:
		return LineMaterialized
	default:
		return LineItem
	}
}

// StatusColor is the marker color for a page sync status
func StatusColor(s domain.PageStatus) lipgloss.Color {
	switch s {
	case domain.StatusQuiescent:
		return Secondary
	case domain.StatusConflict:
		return Error
	default:
		return Warning
	}
}
