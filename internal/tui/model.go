package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atinyakov/ReinsDesk/internal/app"
	"github.com/atinyakov/ReinsDesk/internal/client/listing"
)

// loadAhead is how close to the end of the loaded rows the cursor may get
// before the next page is requested.
const loadAhead = 5

type (
	listLoadedMsg   struct{ err error }
	moreLoadedMsg   struct{ err error }
	detailLoadedMsg struct{ err error }
	deletedMsg      struct {
		id  string
		err error
	}
	loginDoneMsg struct{ err error }
)

type model struct {
	ctx   context.Context
	app   *app.App
	inbox *inbox

	width, height int
	spinner       spinner.Model

	search    textinput.Model
	searching bool

	username   textinput.Model
	password   textinput.Model
	loginFocus int
	loggingIn  bool
	// focus is the command returned by the initial input focus.
	focus tea.Cmd

	cursor int
	top    int

	// confirmID is the listing waiting for delete confirmation.
	confirmID string

	status    string
	statusErr bool
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 120
	ti.Width = 40
	_ = ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func newModel(ctx context.Context, a *app.App, box *inbox) model {
	m := model{
		ctx:      ctx,
		app:      a,
		inbox:    box,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		search:   newInput("building, station, city…"),
		username: newInput("username"),
		password: newInput("password"),
	}
	m.search.Prompt = "/ "
	m.username.Prompt = "Username: "
	m.password.Prompt = "Password: "
	m.password.EchoMode = textinput.EchoPassword
	m.search.SetValue(a.Listing.Filters().Search)
	if a.Nav.Screen() == app.ScreenLogin {
		m.focus = m.username.Focus()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.focus}
	if m.app.Nav.Screen() != app.ScreenLogin {
		cmds = append(cmds, m.fetch())
	}
	return tea.Batch(cmds...)
}

func (m model) fetch() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return listLoadedMsg{err: a.Listing.FetchProperties(ctx, true)}
	}
}

func (m model) fetchMore() tea.Cmd {
	snap := m.app.Listing.Snapshot()
	if !snap.HasMore || snap.State != listing.Ready {
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return moreLoadedMsg{err: a.Listing.FetchMoreProperties(ctx)}
	}
}

func (m model) fetchDetail(id string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return detailLoadedMsg{err: a.OpenProperty(ctx, id)}
	}
}

func (m model) remove(id string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return deletedMsg{id: id, err: a.Detail.DeleteProperty(ctx, id)}
	}
}

func (m model) login(username, password string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return loginDoneMsg{err: a.Login(ctx, username, password)}
	}
}

// rows returns the filtered listings shown on the list screen.
func (m model) rows() []listingRow {
	items := m.app.Listing.FilteredProperties()
	out := make([]listingRow, len(items))
	for i, p := range items {
		out[i] = listingRow{p}
	}
	return out
}

func (m model) pageRows() int {
	h := m.height
	if h <= 0 {
		h = 24
	}
	return max(1, h-8)
}

// clamp keeps the cursor on a row and the row in the visible window.
func (m *model) clamp(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.pageRows()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+page {
		m.top = m.cursor - page + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m *model) drain() {
	for _, n := range m.inbox.drain() {
		m.status = n.Message
		m.statusErr = n.Level == app.LevelError
	}
}

func (m *model) report(err error) {
	if err == nil {
		return
	}
	m.app.Nav.Report(err)
	m.drain()
}

func (m *model) info(msg string) {
	m.status, m.statusErr = msg, false
}
