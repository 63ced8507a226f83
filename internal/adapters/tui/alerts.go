package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/ports"
)

// Alerts buffers engine alerts until the TUI picks them up. Alerts raised
// while the buffer is full are dropped.
type Alerts struct {
	ch chan ports.Alert
}

var _ ports.Alerter = (*Alerts)(nil)

// NewAlerts creates an alert buffer of the given size
func NewAlerts(size int) *Alerts {
	return &Alerts{ch: make(chan ports.Alert, size)}
}

// Alert queues a for display
func (a *Alerts) Alert(al ports.Alert) {
	select {
	case a.ch <- al:
	default:
	}
}

type alertMsg struct {
	alert ports.Alert
}

// wait blocks until the next alert arrives
func (a *Alerts) wait() tea.Msg {
	return alertMsg{<-a.ch}
}
