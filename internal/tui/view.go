package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/atinyakov/ReinsDesk/internal/app"
	"github.com/atinyakov/ReinsDesk/internal/format"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	selectedStyle = lipgloss.NewStyle().Padding(0, 1).Reverse(true)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Padding(0, 1).Bold(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

type listingRow struct {
	models.Property
}

func (r listingRow) cells() []string {
	station := format.Dash(r.Station1)
	if r.Station1 != "" && r.WalkMinutes1 != "" {
		station = r.Station1 + " " + r.WalkMinutes1 + "min"
	}
	return []string{
		format.Dash(r.BuildingName),
		format.Dash(r.Address()),
		format.Dash(format.Yen(r.Rent)),
		format.Dash(r.LayoutType),
		format.Dash(r.UsableArea),
		station,
		format.StatusLabel(r.Status),
	}
}

func (m model) View() string {
	var body string
	switch m.app.Nav.Screen() {
	case app.ScreenLogin:
		body = m.loginView()
	case app.ScreenDetail:
		body = m.detailView()
	default:
		body = m.listView()
	}
	return body + "\n" + m.statusLine()
}

func (m model) statusLine() string {
	switch {
	case m.confirmID != "":
		return errorStyle.Render("Delete this property? (y/n)")
	case m.status == "":
		return ""
	case m.statusErr:
		return errorStyle.Render(m.status)
	}
	return infoStyle.Render(m.status)
}

func (m model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ReinsDesk") + "\n\n")
	b.WriteString(m.username.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")
	if m.loggingIn {
		b.WriteString(m.spinner.View() + " signing in\n")
	} else {
		b.WriteString(helpStyle.Render("tab switch field • enter sign in • esc quit") + "\n")
	}
	return boxStyle.Render(b.String())
}

func (m model) listView() string {
	snap := m.app.Listing.Snapshot()
	rows := m.rows()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Properties"))
	fmt.Fprintf(&b, "  %d of %s", len(rows), humanize.Comma(int64(snap.Total)))
	if snap.IsLoadingInitial() || snap.IsLoadingMore() {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}
	if active := m.app.Listing.ActiveFilters(); len(active) > 0 {
		labels := make([]string, len(active))
		for i, f := range active {
			labels[i] = f.Label
		}
		b.WriteString(helpStyle.Render("filters: "+strings.Join(labels, ", ")) + "\n")
	}

	switch {
	case len(rows) == 0 && snap.IsLoadingInitial():
		b.WriteString("\n" + m.spinner.View() + " loading listings\n")
	case len(rows) == 0:
		b.WriteString("\nNo properties\n")
	default:
		end := min(len(rows), m.top+m.pageRows())
		visible := rows[m.top:end]
		cursor := m.cursor - m.top
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Headers("BUILDING", "ADDRESS", "RENT", "LAYOUT", "AREA", "STATION", "STATUS").
			StyleFunc(func(row, _ int) lipgloss.Style {
				switch row {
				case table.HeaderRow:
					return headerStyle
				case cursor:
					return selectedStyle
				}
				return cellStyle
			})
		for _, r := range visible {
			t.Row(r.cells()...)
		}
		b.WriteString(t.Render() + "\n")
		if snap.HasMore {
			b.WriteString(helpStyle.Render("more listings below") + "\n")
		}
	}
	b.WriteString(helpStyle.Render("↑/↓ move • enter open • / search • d delete • c clear filters • r refresh • q quit"))
	return b.String()
}

func (m model) detailView() string {
	snap := m.app.Detail.Snapshot()
	var b strings.Builder
	if snap.Current == nil {
		if snap.Loading {
			b.WriteString(m.spinner.View() + " loading property\n")
		} else {
			b.WriteString("Property not available\n")
		}
	} else {
		p := *snap.Current
		title := format.Dash(p.BuildingName)
		if p.RoomNumber != "" {
			title += " " + p.RoomNumber
		}
		b.WriteString(titleStyle.Render(title))
		if snap.Loading {
			b.WriteString("  " + m.spinner.View())
		}
		b.WriteString("\n")
		if err := format.PropertyDetail(&b, p, m.app.API.FileURL); err != nil {
			b.WriteString(errorStyle.Render(err.Error()) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("esc back • d delete • r reload • q quit"))
	return b.String()
}
