package listing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// FilterKey names one criterion of Filters.
type FilterKey string

const (
	KeySearch            FilterKey = "search"
	KeyPrefecture        FilterKey = "prefecture"
	KeyCity              FilterKey = "city"
	KeyMinRent           FilterKey = "minRent"
	KeyMaxRent           FilterKey = "maxRent"
	KeyLayoutType        FilterKey = "layoutType"
	KeyMinArea           FilterKey = "minArea"
	KeyMaxArea           FilterKey = "maxArea"
	KeyBuildingStructure FilterKey = "buildingStructure"
	KeyStation           FilterKey = "station"
	KeyStatus            FilterKey = "status"
)

// FilterKeys lists every key in badge order. Search comes first.
var FilterKeys = []FilterKey{
	KeySearch, KeyPrefecture, KeyCity, KeyLayoutType, KeyBuildingStructure,
	KeyStation, KeyMinRent, KeyMaxRent, KeyMinArea, KeyMaxArea, KeyStatus,
}

// StatusAll disables the status criterion.
const StatusAll = "all"

var (
	// ErrUnknownFilter is returned for a key outside FilterKeys.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrInvalidFilter is returned for a range bound that is not a number or
	// an unknown status.
	ErrInvalidFilter = errors.New("invalid filter value")
)

// Filters is the criteria value object. An empty field is an absent
// criterion. Range bounds are kept as the strings the user typed.
type Filters struct {
	Search            string `json:"search"`
	Prefecture        string `json:"prefecture,omitempty"`
	City              string `json:"city,omitempty"`
	MinRent           string `json:"minRent,omitempty"`
	MaxRent           string `json:"maxRent,omitempty"`
	LayoutType        string `json:"layoutType,omitempty"`
	MinArea           string `json:"minArea,omitempty"`
	MaxArea           string `json:"maxArea,omitempty"`
	BuildingStructure string `json:"buildingStructure,omitempty"`
	Station           string `json:"station,omitempty"`
	Status            string `json:"status,omitempty"`
}

func (f *Filters) field(k FilterKey) *string {
	switch k {
	case KeySearch:
		return &f.Search
	case KeyPrefecture:
		return &f.Prefecture
	case KeyCity:
		return &f.City
	case KeyMinRent:
		return &f.MinRent
	case KeyMaxRent:
		return &f.MaxRent
	case KeyLayoutType:
		return &f.LayoutType
	case KeyMinArea:
		return &f.MinArea
	case KeyMaxArea:
		return &f.MaxArea
	case KeyBuildingStructure:
		return &f.BuildingStructure
	case KeyStation:
		return &f.Station
	case KeyStatus:
		return &f.Status
	}
	return nil
}

// Get returns the value of k, empty for unknown keys.
func (f Filters) Get(k FilterKey) string {
	if p := f.field(k); p != nil {
		return *p
	}
	return ""
}

// Merge returns f with every entry of patch applied. An empty value clears
// that criterion.
func (f Filters) Merge(patch map[FilterKey]string) (Filters, error) {
	out := f
	for k, v := range patch {
		p := out.field(k)
		if p == nil {
			return f, fmt.Errorf("%w: %q", ErrUnknownFilter, k)
		}
		v = strings.TrimSpace(v)
		if err := validate(k, v); err != nil {
			return f, err
		}
		*p = v
	}
	return out, nil
}

func validate(k FilterKey, v string) error {
	if v == "" {
		return nil
	}
	switch k {
	case KeyMinRent, KeyMaxRent, KeyMinArea, KeyMaxArea:
		if _, ok := leadingNumber(v); !ok {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidFilter, k, v)
		}
	case KeyStatus:
		if v == StatusAll {
			return nil
		}
		for _, s := range models.Statuses {
			if string(s) == v {
				return nil
			}
		}
		return fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, v)
	}
	return nil
}

// ActiveFilter is one populated criterion, ready to show as a badge.
type ActiveFilter struct {
	Key   FilterKey `json:"key"`
	Value string    `json:"value"`
	Label string    `json:"label"`
}

// Active returns the populated criteria except search, in badge order.
func (f Filters) Active() []ActiveFilter {
	var out []ActiveFilter
	for _, k := range FilterKeys {
		v := f.Get(k)
		if k == KeySearch || v == "" || (k == KeyStatus && v == StatusAll) {
			continue
		}
		out = append(out, ActiveFilter{Key: k, Value: v, Label: label(k, v)})
	}
	return out
}

func label(k FilterKey, v string) string {
	switch k {
	case KeyPrefecture:
		return "Prefecture: " + v
	case KeyCity:
		return "City: " + v
	case KeyLayoutType:
		return "Layout: " + v
	case KeyBuildingStructure:
		return "Structure: " + v
	case KeyStation:
		return "Station: " + v
	case KeyMinRent:
		return "Min Rent: ¥" + v
	case KeyMaxRent:
		return "Max Rent: ¥" + v
	case KeyMinArea:
		return "Min Area: " + v + "m²"
	case KeyMaxArea:
		return "Max Area: " + v + "m²"
	case KeyStatus:
		return "Status: " + v
	}
	return string(k) + ": " + v
}

var numberPrefix = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// leadingNumber parses the number at the start of s, ignoring thousands
// separators, the way "120,000円" or "25.5㎡" are written.
func leadingNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	return n, err == nil
}

// matcher evaluates Filters against properties. It is not safe for
// concurrent use because the case folder keeps state.
type matcher struct {
	f      Filters
	folder cases.Caser
	search string

	minRent, maxRent, minArea, maxArea *float64
}

func newMatcher(f Filters) *matcher {
	m := &matcher{f: f, folder: cases.Fold()}
	if f.Search != "" {
		m.search = m.folder.String(f.Search)
	}
	m.minRent = bound(f.MinRent)
	m.maxRent = bound(f.MaxRent)
	m.minArea = bound(f.MinArea)
	m.maxArea = bound(f.MaxArea)
	return m
}

func bound(s string) *float64 {
	if s == "" {
		return nil
	}
	if n, ok := leadingNumber(s); ok {
		return &n
	}
	return nil
}

func (m *matcher) match(p models.Property) bool {
	if m.search != "" && !m.matchSearch(p) {
		return false
	}
	if m.f.Prefecture != "" && p.Prefecture != m.f.Prefecture {
		return false
	}
	if m.f.City != "" && p.City != m.f.City {
		return false
	}
	if m.f.LayoutType != "" && p.LayoutType != m.f.LayoutType {
		return false
	}
	if m.f.BuildingStructure != "" && p.BuildingStructure != m.f.BuildingStructure {
		return false
	}
	if m.f.Station != "" && !anyContains(m.f.Station, p.Station1, p.Station2, p.Station3) {
		return false
	}
	if !inRange(p.Rent, m.minRent, m.maxRent) {
		return false
	}
	if !inRange(p.UsableArea, m.minArea, m.maxArea) {
		return false
	}
	if st := m.f.Status; st != "" && st != StatusAll && string(p.Status) != st {
		return false
	}
	return true
}

func (m *matcher) matchSearch(p models.Property) bool {
	for _, field := range []string{
		p.BuildingName, p.ReinsID, p.Prefecture, p.City, p.Town, p.AddressDetail,
		p.LayoutType, p.Station1, p.Station2, p.Station3, p.BuildingStructure,
	} {
		if field != "" && strings.Contains(m.folder.String(field), m.search) {
			return true
		}
	}
	return false
}

func anyContains(needle string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(f, needle) {
			return true
		}
	}
	return false
}

// inRange treats a missing field as 0 and excludes an unparsable one.
func inRange(field string, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	v := 0.0
	if strings.TrimSpace(field) != "" {
		n, ok := leadingNumber(field)
		if !ok {
			return false
		}
		v = n
	}
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}
