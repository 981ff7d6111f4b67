package models

import (
	"net/url"
	"strings"
)

// PropertyStatus is the processing state carried by ingested listings.
type PropertyStatus string

const (
	// StatusPending is a listing waiting for processing.
	StatusPending PropertyStatus = "pending"
	// StatusProcessing is a listing being processed.
	StatusProcessing PropertyStatus = "processing"
	// StatusSuccess is a fully processed listing.
	StatusSuccess PropertyStatus = "success"
	// StatusFailed is a listing whose processing failed.
	StatusFailed PropertyStatus = "failed"
)

// Statuses lists every known status in display order.
var Statuses = []PropertyStatus{StatusPending, StatusProcessing, StatusSuccess, StatusFailed}

// Property is the canonical flat listing record. Every attribute except the
// identifiers and timestamps is optional and kept as the string the backend sent.
type Property struct {
	ID      string `json:"_id"`
	UserID  string `json:"user_id,omitempty"`
	ReinsID string `json:"reins_id"`

	Status PropertyStatus `json:"status,omitempty"`

	// Location
	Prefecture    string `json:"prefecture,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	AddressDetail string `json:"addressDetail,omitempty"`
	BuildingName  string `json:"buildingName,omitempty"`
	RoomNumber    string `json:"roomNumber,omitempty"`

	// Pricing
	Rent             string `json:"rent,omitempty"`
	SecurityDeposit  string `json:"securityDeposit,omitempty"`
	KeyMoney         string `json:"keyMoney,omitempty"`
	GuaranteeDeposit string `json:"guaranteeDeposit,omitempty"`
	ManagementFee    string `json:"managementFee,omitempty"`
	CommonServiceFee string `json:"commonServiceFee,omitempty"`

	// Area
	UsableArea  string `json:"usableArea,omitempty"`
	BalconyArea string `json:"balconyArea,omitempty"`

	// Transportation
	RailwayLine1 string `json:"railwayLine1,omitempty"`
	Station1     string `json:"station1,omitempty"`
	WalkMinutes1 string `json:"walkMinutes1,omitempty"`
	RailwayLine2 string `json:"railwayLine2,omitempty"`
	Station2     string `json:"station2,omitempty"`
	WalkMinutes2 string `json:"walkMinutes2,omitempty"`
	RailwayLine3 string `json:"railwayLine3,omitempty"`
	Station3     string `json:"station3,omitempty"`
	WalkMinutes3 string `json:"walkMinutes3,omitempty"`

	// Layout
	LayoutType string `json:"layoutType,omitempty"`
	RoomCount  string `json:"roomCount,omitempty"`

	// Building
	ConstructionDate  string `json:"constructionDate,omitempty"`
	BuildingStructure string `json:"buildingStructure,omitempty"`
	AboveGroundFloors string `json:"aboveGroundFloors,omitempty"`
	UndergroundFloors string `json:"undergroundFloors,omitempty"`
	FloorLocation     string `json:"floorLocation,omitempty"`
	BalconyDirection  string `json:"balconyDirection,omitempty"`

	// Equipment & amenities, free text
	Equipment string `json:"equipment,omitempty"`
	Amenities string `json:"amenities,omitempty"`

	Files *PropertyFiles `json:"files,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PropertyFiles references the documents attached to a listing.
type PropertyFiles struct {
	HTMLPath          string   `json:"html_path,omitempty"`
	HTMLFilename      string   `json:"html_filename,omitempty"`
	FloorplanPath     string   `json:"floorplan_path,omitempty"`
	FloorplanFilename string   `json:"floorplan_filename,omitempty"`
	ImagePaths        []string `json:"image_paths,omitempty"`
	ImageFilenames    []string `json:"image_filenames,omitempty"`
}

// Stations returns the non-empty station names in line order.
func (p Property) Stations() []string {
	out := make([]string, 0, 3)
	for _, s := range []string{p.Station1, p.Station2, p.Station3} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Address joins the populated location fields with single spaces.
func (p Property) Address() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Prefecture, p.City, p.Town, p.AddressDetail} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// PropertyPage is one page of the paginated list endpoint.
type PropertyPage struct {
	Properties []Property `json:"properties"`
	Total      int        `json:"total"`
	Count      int        `json:"count"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
	// HasMore is nil when the backend did not send the flag.
	HasMore *bool `json:"hasMore,omitempty"`
}

// FileURL resolves a stored file reference against the file-serving base.
// Absolute http(s) URLs point at external object storage and are returned
// unchanged; anything else is served under <fileBase>/files/.
func FileURL(fileBase, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return ref
	}
	rel := strings.TrimLeft(ref, "/")
	rel = strings.TrimPrefix(rel, "files/")
	return strings.TrimRight(fileBase, "/") + "/files/" + rel
}
