package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// Demo account created by Seed.
const (
	DemoUsername = "agent1"
	DemoPassword = "secret"
	DemoEmail    = "agent1@example.com"
)

type demoArea struct {
	prefecture, city, town, line, station string
}

var demoAreas = []demoArea{
	{"Tokyo", "Shibuya", "Ebisu", "JR Yamanote Line", "Ebisu"},
	{"Tokyo", "Setagaya", "Sangenjaya", "Tokyu Den-en-toshi Line", "Sangen-jaya"},
	{"Tokyo", "Meguro", "Nakameguro", "Tokyu Toyoko Line", "Naka-meguro"},
	{"Kanagawa", "Yokohama", "Minatomirai", "Minatomirai Line", "Minatomirai"},
	{"Osaka", "Kita", "Umeda", "Midosuji Line", "Umeda"},
}

var (
	demoNames      = []string{"Sakura Heights", "Maison Aoi", "Park Residence", "Grand Sakura", "Villa Kaede"}
	demoLayouts    = []string{"1K", "1LDK", "2LDK", "1R", "3LDK"}
	demoStructures = []string{"RC", "SRC", "Wooden", "Steel"}
)

// Seed creates the demo account and n listings owned by it. It is a no-op
// when the account already exists.
func Seed(ctx context.Context, auth *AuthService, props *PropertyService, n int) (models.User, error) {
	resp, err := auth.Register(ctx, models.Registration{
		Username: DemoUsername,
		Email:    DemoEmail,
		Password: DemoPassword,
	})
	if errors.Is(err, ErrUserExists) {
		return models.User{}, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("seed user: %w", err)
	}

	// Inserted oldest first so listing order follows the index.
	for i := n - 1; i >= 0; i-- {
		var files []UploadedFile
		if i%5 == 0 {
			files = append(files, UploadedFile{
				Field:    FieldHTML,
				Filename: fmt.Sprintf("reins-%03d.html", i),
				Data:     []byte("<html><body>REINS sheet " + strconv.Itoa(i) + "</body></html>"),
			})
		}
		if _, err := props.Create(ctx, resp.User.ID, DemoFields(i), files); err != nil {
			return models.User{}, fmt.Errorf("seed listing %d: %w", i, err)
		}
	}
	return resp.User, nil
}

// DemoFields returns the flat form fields of demo listing i.
func DemoFields(i int) map[string]string {
	a := demoAreas[i%len(demoAreas)]
	rent := 70000 + (i%12)*8500
	area := 20 + (i%9)*6
	return map[string]string{
		"reins_id":          fmt.Sprintf("1000%06d", i+1),
		"status":            string(models.Statuses[i%len(models.Statuses)]),
		"prefecture":        a.prefecture,
		"city":              a.city,
		"town":              a.town,
		"addressDetail":     fmt.Sprintf("%d-%d", i%4+1, i%20+1),
		"buildingName":      demoNames[i%len(demoNames)],
		"roomNumber":        strconv.Itoa(101 + i%6*100),
		"rent":              fmt.Sprintf("%d円", rent),
		"managementFee":     "5,000円",
		"securityDeposit":   "1ヶ月",
		"keyMoney":          "1ヶ月",
		"usableArea":        fmt.Sprintf("%d.50㎡", area),
		"railwayLine1":      a.line,
		"station1":          a.station,
		"walkMinutes1":      strconv.Itoa(3 + i%10),
		"layoutType":        demoLayouts[i%len(demoLayouts)],
		"buildingStructure": demoStructures[i%len(demoStructures)],
		"constructionDate":  strconv.Itoa(1990+i%30) + "年",
		"floorLocation":     strconv.Itoa(1+i%6) + "階",
	}
}
