package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/editor"
	"quaderno/internal/adapters/tui/styles"
	"quaderno/internal/adapters/tui/views"
	"quaderno/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewPages ViewState = iota
	ViewOutline
	ViewTitle
	ViewDelete
	ViewSearch
	ViewHelp
)

// App is the main TUI application model
type App struct {
	session views.Session
	updates <-chan struct{}
	alerts  *Alerts
	editor  ports.EditorOpener

	state   ViewState
	prev    ViewState // where help returns to
	pages   *views.PagesModel
	outline *views.OutlineModel
	title   *views.TitleFormModel
	del     *views.DeleteModel
	search  *views.SearchModel
	help    *views.HelpModel

	alert  *ports.Alert // blocking alert waiting to be dismissed
	status views.StatusMsg

	width  int
	height int
}

// NewApp creates a new TUI application. updates signals that pages changed
// behind the views' back; alerts and ed may be nil.
func NewApp(session views.Session, updates <-chan struct{}, alerts *Alerts, ed ports.EditorOpener) *App {
	return &App{
		session: session,
		updates: updates,
		alerts:  alerts,
		editor:  ed,
		state:   ViewPages,
		pages:   views.NewPagesModel(session),
		outline: views.NewOutlineModel(session),
		title:   views.NewTitleFormModel(session),
		del:     views.NewDeleteModel(session),
		search:  views.NewSearchModel(session),
		help:    views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.pages.Init(), a.waitUpdate(), a.waitAlert())
}

type pagesChangedMsg struct{}

func (a *App) waitUpdate() tea.Cmd {
	if a.updates == nil {
		return nil
	}
	updates := a.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return pagesChangedMsg{}
	}
}

func (a *App) waitAlert() tea.Cmd {
	if a.alerts == nil {
		return nil
	}
	return a.alerts.wait
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		for _, m := range []tea.Model{a.pages, a.outline, a.title, a.del, a.search, a.help} {
			m.Update(msg)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.alert != nil {
			if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
				a.alert = nil
			}
			return a, nil
		}

	case pagesChangedMsg:
		return a, tea.Batch(a.refresh(), a.waitUpdate())

	case alertMsg:
		if msg.alert.Blocking {
			al := msg.alert
			a.alert = &al
		} else {
			a.status = views.StatusMsg{Text: msg.alert.Message, Err: true}
		}
		return a, a.waitAlert()

	case views.StatusMsg:
		a.status = msg
		return a, nil

	// View switching messages
	case views.SwitchToPagesMsg:
		if a.state == ViewHelp && a.prev == ViewOutline {
			a.state = ViewOutline
			return a, a.outline.Reload()
		}
		a.state = ViewPages
		return a, a.pages.Reload()

	case views.SwitchToCreateMsg:
		a.state = ViewTitle
		a.title.StartCreate()
		return a, a.title.Init()

	case views.SwitchToRenameMsg:
		a.state = ViewTitle
		a.title.StartRename(msg.Page)
		return a, a.title.Init()

	case views.SwitchToDeleteMsg:
		a.state = ViewDelete
		a.del.SetTarget(msg.Page)
		return a, nil

	case views.SwitchToSearchMsg:
		a.state = ViewSearch
		a.search.Reset()
		return a, a.search.Init()

	case views.SwitchToHelpMsg:
		a.prev = a.state
		a.state = ViewHelp
		return a, nil

	case views.OpenPageMsg:
		a.state = ViewOutline
		return a, a.outline.Open(msg.PageID, msg.Line)

	case views.TitleSavedMsg:
		a.status = msg.Status
		if msg.Created {
			a.state = ViewOutline
			return a, a.outline.Open(msg.Page.ID, 0)
		}
		a.state = ViewPages
		return a, a.pages.Reload()

	case views.DeleteDoneMsg:
		a.status = msg.Status
		a.state = ViewPages
		return a, a.pages.Reload()

	case views.OpenEditorMsg:
		return a, a.openEditor(msg.PageID)

	case editorDoneMsg:
		return a, a.finishEdit(msg)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewPages:
		_, cmd = a.pages.Update(msg)
	case ViewOutline:
		_, cmd = a.outline.Update(msg)
	case ViewTitle:
		_, cmd = a.title.Update(msg)
	case ViewDelete:
		_, cmd = a.del.Update(msg)
	case ViewSearch:
		_, cmd = a.search.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

// refresh re-reads whatever is on screen after a background change
func (a *App) refresh() tea.Cmd {
	switch a.state {
	case ViewOutline:
		if a.outline.Editing() {
			return nil
		}
		return a.outline.Reload()
	case ViewPages:
		return a.pages.Reload()
	}
	return nil
}

type editorDoneMsg struct {
	pageID string
	draft  *editor.Draft
	err    error
}

// openEditor hands the terminal to the external editor with the page text
// in a temporary file
func (a *App) openEditor(pageID string) tea.Cmd {
	if a.editor == nil {
		return func() tea.Msg { return views.StatusMsg{Text: "no editor configured", Err: true} }
	}

	o, err := a.session.Outline(context.Background(), pageID)
	if err != nil {
		return func() tea.Msg { return views.StatusMsg{Text: err.Error(), Err: true} }
	}
	draft, err := editor.NewDraft(o.Page.Title, o.Page.Value)
	if err != nil {
		return func() tea.Msg { return views.StatusMsg{Text: err.Error(), Err: true} }
	}
	cmd, err := a.editor.Command(draft.Path)
	if err != nil {
		draft.Close()
		return func() tea.Msg { return views.StatusMsg{Text: err.Error(), Err: true} }
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorDoneMsg{pageID: pageID, draft: draft, err: err}
	})
}

func (a *App) finishEdit(msg editorDoneMsg) tea.Cmd {
	defer msg.draft.Close()
	if msg.err != nil {
		a.status = views.StatusMsg{Text: "editor failed: " + msg.err.Error(), Err: true}
		return nil
	}
	value, err := msg.draft.Read()
	if err != nil {
		a.status = views.StatusMsg{Text: err.Error(), Err: true}
		return nil
	}

	pageID := msg.pageID
	edit := func() tea.Msg {
		if err := a.session.EditPage(context.Background(), pageID, value); err != nil {
			return views.StatusMsg{Text: err.Error(), Err: true}
		}
		return views.StatusMsg{Text: "Page updated"}
	}
	return tea.Sequence(edit, a.refresh())
}

// View renders the current view
func (a *App) View() string {
	var body string
	switch a.state {
	case ViewOutline:
		body = a.outline.View()
	case ViewTitle:
		body = a.title.View()
	case ViewDelete:
		body = a.del.View()
	case ViewSearch:
		body = a.search.View()
	case ViewHelp:
		body = a.help.View()
	default:
		body = a.pages.View()
	}

	var b strings.Builder
	if a.alert != nil {
		b.WriteString(styles.AlertBlocking.Render(a.alert.Message))
		b.WriteString("  ")
		b.WriteString(styles.MutedText.Render("enter to dismiss"))
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	if a.status.Text != "" {
		b.WriteString("\n")
		b.WriteString(views.RenderMessage(a.status.Text, a.status.Err))
	}
	return b.String()
}
