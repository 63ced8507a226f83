package views

import "quaderno/internal/domain"

// ViewState contains common state shared by all view models.
// Embed this struct in view models to get width/height and message handling.
type ViewState struct {
	Width      int
	Height     int
	Message    string
	MessageErr bool
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetMessage sets a message to display in the view
func (s *ViewState) SetMessage(msg string, isErr bool) {
	s.Message = msg
	s.MessageErr = isErr
}

// ClearMessage clears the current message
func (s *ViewState) ClearMessage() {
	s.Message = ""
	s.MessageErr = false
}

// View switching messages

type SwitchToPagesMsg struct{}

type SwitchToCreateMsg struct{}

type SwitchToSearchMsg struct{}

type SwitchToHelpMsg struct{}

type SwitchToRenameMsg struct {
	Page domain.Page
}

type SwitchToDeleteMsg struct {
	Page domain.Page
}

// OpenPageMsg shows a page in the outline view
type OpenPageMsg struct {
	PageID string
	Line   int
}

// OpenEditorMsg asks the app to edit a whole page in the external editor
type OpenEditorMsg struct {
	PageID string
}

// StatusMsg reports the outcome of an action in the status bar
type StatusMsg struct {
	Text string
	Err  bool
}

func statusErr(err error) StatusMsg {
	return StatusMsg{Text: err.Error(), Err: true}
}
