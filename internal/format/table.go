package format

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	statusColors = map[models.PropertyStatus]lipgloss.Color{
		models.StatusPending:    lipgloss.Color("3"),
		models.StatusProcessing: lipgloss.Color("4"),
		models.StatusSuccess:    lipgloss.Color("2"),
		models.StatusFailed:     lipgloss.Color("1"),
	}

	amountRe = regexp.MustCompile(`^\d+`)
)

// Yen renders a price field such as "85000円" or "85,000" as "¥85,000".
// Values that do not start with a whole number are returned unchanged.
func Yen(s string) string {
	s = strings.TrimSpace(s)
	digits := amountRe.FindString(strings.ReplaceAll(s, ",", ""))
	if digits == "" {
		return s
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return s
	}
	return "¥" + humanize.Comma(n)
}

// Dash replaces an empty value with "-".
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// StatusLabel colours a status for terminal output.
func StatusLabel(s models.PropertyStatus) string {
	if s == "" {
		return "-"
	}
	c, ok := statusColors[s]
	if !ok {
		return string(s)
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(s))
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// PropertiesTable writes one row per listing followed by a count line.
func PropertiesTable(w io.Writer, props []models.Property, total int) error {
	t := newTable().Headers("ID", "REINS", "BUILDING", "ADDRESS", "RENT", "LAYOUT", "AREA", "STATION", "STATUS")
	for _, p := range props {
		station := ""
		if st := p.Stations(); len(st) > 0 {
			station = st[0]
			if p.WalkMinutes1 != "" {
				station += " " + p.WalkMinutes1 + "min"
			}
		}
		t.Row(
			p.ID,
			Dash(p.ReinsID),
			Dash(p.BuildingName),
			Dash(p.Address()),
			Dash(Yen(p.Rent)),
			Dash(p.LayoutType),
			Dash(p.UsableArea),
			Dash(station),
			StatusLabel(p.Status),
		)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %s listings", len(props), humanize.Comma(int64(total)))))
	return err
}

// PropertyDetail writes the populated fields of p as a two-column table.
// fileURL resolves stored file references.
func PropertyDetail(w io.Writer, p models.Property, fileURL func(string) string) error {
	rows := [][2]string{
		{"ID", p.ID},
		{"REINS ID", p.ReinsID},
		{"Status", StatusLabel(p.Status)},
		{"Building", strings.TrimSpace(p.BuildingName + " " + p.RoomNumber)},
		{"Address", p.Address()},
		{"Rent", Yen(p.Rent)},
		{"Management fee", Yen(p.ManagementFee)},
		{"Common service fee", Yen(p.CommonServiceFee)},
		{"Security deposit", p.SecurityDeposit},
		{"Key money", p.KeyMoney},
		{"Guarantee deposit", p.GuaranteeDeposit},
		{"Layout", strings.TrimSpace(p.LayoutType + " " + p.RoomCount)},
		{"Usable area", p.UsableArea},
		{"Balcony area", p.BalconyArea},
		{"Structure", p.BuildingStructure},
		{"Built", p.ConstructionDate},
		{"Floor", p.FloorLocation},
		{"Floors", floors(p)},
		{"Balcony direction", p.BalconyDirection},
		{"Access", access(p)},
		{"Equipment", p.Equipment},
		{"Amenities", p.Amenities},
		{"Created", p.CreatedAt},
		{"Updated", p.UpdatedAt},
	}
	if p.Files != nil {
		if p.Files.HTMLPath != "" {
			rows = append(rows, [2]string{"REINS sheet", fileURL(p.Files.HTMLPath)})
		}
		if p.Files.FloorplanPath != "" {
			rows = append(rows, [2]string{"Floor plan", fileURL(p.Files.FloorplanPath)})
		}
		for i, img := range p.Files.ImagePaths {
			rows = append(rows, [2]string{fmt.Sprintf("Image %d", i+1), fileURL(img)})
		}
	}

	t := newTable()
	for _, r := range rows {
		if strings.TrimSpace(r[1]) == "" || r[1] == "-" {
			continue
		}
		t.Row(r[0], r[1])
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func floors(p models.Property) string {
	switch {
	case p.AboveGroundFloors != "" && p.UndergroundFloors != "":
		return p.AboveGroundFloors + " above / " + p.UndergroundFloors + " below"
	case p.AboveGroundFloors != "":
		return p.AboveGroundFloors
	}
	return ""
}

func access(p models.Property) string {
	lines := []struct{ line, station, walk string }{
		{p.RailwayLine1, p.Station1, p.WalkMinutes1},
		{p.RailwayLine2, p.Station2, p.WalkMinutes2},
		{p.RailwayLine3, p.Station3, p.WalkMinutes3},
	}
	var out []string
	for _, l := range lines {
		if l.station == "" {
			continue
		}
		s := strings.TrimSpace(l.line + " " + l.station)
		if l.walk != "" {
			s += ", " + l.walk + " min walk"
		}
		out = append(out, s)
	}
	return strings.Join(out, "\n")
}

// FilesTable lists the documents attached to p.
func FilesTable(w io.Writer, p models.Property, fileURL func(string) string) error {
	t := newTable().Headers("KIND", "NAME", "URL")
	n := 0
	if f := p.Files; f != nil {
		if f.HTMLPath != "" {
			t.Row("html", Dash(f.HTMLFilename), fileURL(f.HTMLPath))
			n++
		}
		if f.FloorplanPath != "" {
			t.Row("floorplan", Dash(f.FloorplanFilename), fileURL(f.FloorplanPath))
			n++
		}
		for i, img := range f.ImagePaths {
			name := ""
			if i < len(f.ImageFilenames) {
				name = f.ImageFilenames[i]
			}
			t.Row("image", Dash(name), fileURL(img))
			n++
		}
	}
	if n == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("no files"))
		return err
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
