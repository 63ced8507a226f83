package ports

// Alert is a user-facing message raised by the sync engine
type Alert struct {
	PageID   string
	Message  string
	Blocking bool // the user must acknowledge it before editing continues
}

// Alerter delivers alerts to whatever surface is attached
type Alerter interface {
	Alert(a Alert)
}

// AlerterFunc adapts a function to the Alerter interface
type AlerterFunc func(Alert)

func (f AlerterFunc) Alert(a Alert) { f(a) }
