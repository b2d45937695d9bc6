// Package mapstyle declares the cycling source and layers added to the
// base map, with the colours used for each facility.
package mapstyle

// Facility ratings, worst to best.
const (
	Dangerous = "dangerous"
	Poor      = "poor"
	Adequate  = "adequate"
	Good      = "good"
	Great     = "great"
	Excellent = "excellent"
)

// RatingColor maps a facility rating to its colour.
var RatingColor = map[string]string{
	Dangerous: "#DD6060",
	Poor:      "#F8A954",
	Adequate:  "#FFE83B",
	Good:      "#7CE647",
	Great:     "#0EAECB",
	Excellent: "#1068DA",
}

// RoadwayPalette colours on-street facilities.
type RoadwayPalette struct {
	CycleTrack   string `json:"cycleTrack"`
	BufferedLane string `json:"bufferedLane"`
	Lane         string `json:"lane"`
	ShareBusway  string `json:"shareBusway"`
	SharedLane   string `json:"sharedLane"`
	Shoulder     string `json:"shoulder"`
	None         string `json:"none"`
}

// RoutePalette colours route networks.
type RoutePalette struct {
	Greenway  string `json:"greenway"`
	Signed    string `json:"signed"`
	Suggested string `json:"suggested"`
	None      string `json:"none"`
}

// PathPalette colours off-street paths by access.
type PathPalette struct {
	Allowed    string `json:"allowed"`
	Designated string `json:"designated"`
}

// Palette is the full colour set.
type Palette struct {
	Roadway RoadwayPalette `json:"roadway"`
	Route   RoutePalette   `json:"route"`
	Path    PathPalette    `json:"path"`
}

const unknownColor = "#a83295"

// DefaultPalette rates roadway facilities on the shared scale.
func DefaultPalette() Palette {
	return Palette{
		Roadway: RoadwayPalette{
			CycleTrack:   RatingColor[Excellent],
			BufferedLane: RatingColor[Great],
			Lane:         RatingColor[Poor],
			ShareBusway:  RatingColor[Poor],
			SharedLane:   RatingColor[Poor],
			Shoulder:     RatingColor[Dangerous],
			None:         unknownColor,
		},
		Route: RoutePalette{
			Greenway:  "#3964C4",
			Signed:    "#e6c627",
			Suggested: "#8539C4",
			None:      unknownColor,
		},
		Path: PathPalette{
			Allowed:    "#0DDD37",
			Designated: "#2747c4",
		},
	}
}

// LegendItem is one swatch shown next to a checkbox.
type LegendItem struct {
	ID    string `json:"id" doc:"Checkbox id"`
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}
