package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atinyakov/ReinsDesk/internal/app"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.drain()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clamp(len(m.rows()))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listLoadedMsg:
		m.report(msg.err)
		m.clamp(len(m.rows()))
		return m, m.afterMove()

	case moreLoadedMsg:
		m.report(msg.err)
		m.clamp(len(m.rows()))
		return m, nil

	case detailLoadedMsg:
		m.report(msg.err)
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.report(msg.err)
			return m, nil
		}
		if m.app.Nav.Screen() == app.ScreenDetail {
			m.app.Nav.Navigate(app.ScreenProperties, "")
		}
		m.clamp(len(m.rows()))
		m.info("Property deleted")
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.report(msg.err)
			m.password.SetValue("")
			return m, nil
		}
		m.password.SetValue("")
		m.password.Blur()
		m.username.Blur()
		m.cursor, m.top = 0, 0
		m.info("Logged in as " + m.username.Value())
		return m, m.fetch()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.app.Nav.Screen() {
		case app.ScreenLogin:
			return m.updateLogin(msg)
		case app.ScreenDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}
	var focus tea.Cmd
	if !m.username.Focused() && !m.password.Focused() {
		focus = m.focusLogin(0)
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		return m, tea.Batch(focus, m.focusLogin(1-m.loginFocus))
	case "enter":
		if m.loginFocus == 0 {
			return m, tea.Batch(focus, m.focusLogin(1))
		}
		if m.username.Value() == "" || m.password.Value() == "" {
			m.status, m.statusErr = "Username and password are required", true
			return m, focus
		}
		m.loggingIn = true
		return m, tea.Batch(focus, m.login(m.username.Value(), m.password.Value()))
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, tea.Batch(focus, cmd)
}

func (m *model) focusLogin(i int) tea.Cmd {
	m.loginFocus = i
	if i == 0 {
		m.password.Blur()
		return m.username.Focus()
	}
	m.username.Blur()
	return m.password.Focus()
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmID != "" {
		return m.updateConfirm(msg)
	}
	if m.searching {
		return m.updateSearch(msg)
	}

	n := len(m.rows())
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		m.search.CursorEnd()
		return m, cmd
	case "up", "k":
		m.cursor--
	case "down", "j":
		m.cursor++
	case "pgup":
		m.cursor -= m.pageRows()
	case "pgdown", " ":
		m.cursor += m.pageRows()
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = n - 1
	case "r":
		m.cursor, m.top = 0, 0
		return m, m.fetch()
	case "c":
		m.app.Listing.ClearFilters()
		m.info("Filters cleared")
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.app.Listing.SetSearch("")
		}
	case "enter":
		if row, ok := m.selected(); ok {
			return m, m.fetchDetail(row.ID)
		}
		return m, nil
	case "d":
		if row, ok := m.selected(); ok {
			m.confirmID = row.ID
		}
		return m, nil
	default:
		return m, nil
	}
	m.clamp(len(m.rows()))
	return m, m.afterMove()
}

// afterMove requests the next page when the cursor nears the last row.
func (m model) afterMove() tea.Cmd {
	if m.app.Nav.Screen() != app.ScreenProperties {
		return nil
	}
	if m.cursor >= len(m.rows())-loadAhead {
		return m.fetchMore()
	}
	return nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, m.afterMove()
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.app.Listing.SetSearch("")
		m.clamp(len(m.rows()))
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.app.Listing.SetSearch(m.search.Value())
	m.cursor, m.top = 0, 0
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirmID
	m.confirmID = ""
	switch msg.String() {
	case "y", "Y":
		return m, m.remove(id)
	}
	m.info("Delete cancelled")
	return m, nil
}

func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmID != "" {
		return m.updateConfirm(msg)
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace", "left", "h":
		m.app.Nav.Navigate(app.ScreenProperties, "")
		m.clamp(len(m.rows()))
	case "r":
		return m, m.fetchDetail(m.app.Nav.DetailID())
	case "d":
		m.confirmID = m.app.Nav.DetailID()
	}
	return m, nil
}

func (m model) selected() (listingRow, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return listingRow{}, false
	}
	return rows[m.cursor], true
}
