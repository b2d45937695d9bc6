package mapstyle

import (
	"github.com/joeblew999/bikemap/internal/expr"
	"github.com/joeblew999/bikemap/internal/filter"
	"github.com/joeblew999/bikemap/internal/layers"
)

// SourceID is the id of the GeoJSON source every cycling layer draws from.
const SourceID = "cycling-data"

// Source is a map source definition.
type Source struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Layer is a map layer definition as passed to addLayer.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Layout map[string]any `json:"layout"`
	Filter expr.Expr      `json:"filter"`
	Paint  map[string]any `json:"paint"`
}

// Config configures the style bundle.
type Config struct {
	Token    string     `json:"token,omitempty"`
	StyleURL string     `json:"styleURL"`
	DataURL  string     `json:"dataURL"`
	Center   [2]float64 `json:"center"`
	Zoom     float64    `json:"zoom"`
}

// Bundle is everything the page needs to build the map.
type Bundle struct {
	Token    string       `json:"token,omitempty"`
	StyleURL string       `json:"styleURL"`
	Center   [2]float64   `json:"center"`
	Zoom     float64      `json:"zoom"`
	SourceID string       `json:"sourceId"`
	Source   Source       `json:"source"`
	Layers   []Layer      `json:"layers"`
	Palette  Palette      `json:"palette"`
	Legend   []LegendItem `json:"legend"`
}

// Default view over Charlotte.
var (
	Center = [2]float64{-80.8421784, 35.240988}
	Zoom   = 10.0
)

// NewSource returns the GeoJSON source for url.
func NewSource(url string) Source {
	return Source{Type: "geojson", Data: url}
}

// Style assembles the bundle, filling the default view when unset.
func Style(cfg Config) Bundle {
	if cfg.Center == [2]float64{} {
		cfg.Center = Center
	}
	if cfg.Zoom == 0 {
		cfg.Zoom = Zoom
	}
	p := DefaultPalette()
	return Bundle{
		Token:    cfg.Token,
		StyleURL: cfg.StyleURL,
		Center:   cfg.Center,
		Zoom:     cfg.Zoom,
		SourceID: SourceID,
		Source:   NewSource(cfg.DataURL),
		Layers:   Layers(SourceID, p),
		Palette:  p,
		Legend:   Legend(p),
	}
}

// Layers returns the cycling layers in draw order. Each carries the base
// filter of its group so an untouched widget needs no setFilter call.
func Layers(source string, p Palette) []Layer {
	return []Layer{
		routeLines(source, p.Route),
		routeSymbols(source),
		paths(source, p.Path),
		lanes(source, layers.LanesRightLayer, filter.Right, p.Roadway, 15),
		lanes(source, layers.LanesLeftLayer, filter.Left, p.Roadway, -15),
	}
}

func routeLines(source string, p RoutePalette) Layer {
	return Layer{
		ID:     layers.RouteLinesLayer,
		Type:   "line",
		Source: source,
		Layout: roundLine(),
		Filter: filter.BaseRoute(),
		Paint: map[string]any{
			"line-color": []any{
				"case",
				expr.Eq(filter.FieldCycleNetwork, filter.NetworkSuggested).Wire(), p.Suggested,
				filter.SignedRoute().Wire(), p.Signed,
				expr.Eq(filter.FieldCycleNetwork, filter.NetworkGreenway).Wire(), p.Greenway,
				"#ababab",
			},
			"line-width":   zoomRamp(12, 5, 22, 70),
			"line-opacity": 0.6,
		},
	}
}

func routeSymbols(source string) Layer {
	return Layer{
		ID:     layers.RouteSymbolsLayer,
		Type:   "symbol",
		Source: source,
		Layout: map[string]any{
			"symbol-placement": "line",
			"text-font":        []any{"Open Sans Regular"},
			"text-field":       []any{"coalesce", []any{"get", filter.FieldRef}, []any{"get", "name"}},
			"text-size":        16,
		},
		Filter: filter.BaseRoute(),
		Paint:  map[string]any{},
	}
}

func paths(source string, p PathPalette) Layer {
	return Layer{
		ID:     layers.PathsLayer,
		Type:   "line",
		Source: source,
		Layout: roundLine(),
		Filter: filter.BasePath(),
		Paint: map[string]any{
			"line-color": []any{
				"case",
				expr.Eq(filter.FieldBicycle, "yes").Wire(), p.Allowed,
				expr.Eq(filter.FieldBicycle, "designated").Wire(), p.Designated,
				"rgba(0, 0, 0, 0)",
			},
			"line-width": 1.5,
		},
	}
}

// lanes draws one side of the road; offset pushes it off the centreline,
// negative for the left side.
func lanes(source, id string, side filter.Side, p RoadwayPalette, offset float64) Layer {
	is := func(v string) any { return expr.Eq(side.Field(), v).Wire() }
	buffered := filter.BufferedLane(side).Wire()
	return Layer{
		ID:     id,
		Type:   "line",
		Source: source,
		Layout: map[string]any{},
		Filter: filter.BaseLane(side),
		Paint: map[string]any{
			"line-color": []any{
				"case",
				is(filter.LaneTrack), p.CycleTrack,
				buffered, p.BufferedLane,
				is(filter.LaneLane), p.Lane,
				is(filter.LaneShareBusway), p.ShareBusway,
				is(filter.LaneShared), p.SharedLane,
				is(filter.LaneShoulder), p.Shoulder,
				p.None,
			},
			"line-width": zoomRamp(10, 1, 17, 4),
			"line-dasharray": []any{
				"case",
				is(filter.LaneTrack), literal(1),
				buffered, literal(2, 2),
				is(filter.LaneLane), literal(2, 4),
				is(filter.LaneShared), literal(2, 8),
				literal(),
			},
			"line-offset": zoomRamp(12, 0, 22, offset),
		},
	}
}

// Legend returns the swatch for every leaf checkbox.
func Legend(p Palette) []LegendItem {
	return []LegendItem{
		{ID: string(layers.GreenwayRoutes), Label: "Greenway", Color: p.Route.Greenway},
		{ID: string(layers.SignedRoutes), Label: "Signed", Color: p.Route.Signed},
		{ID: string(layers.SuggestedRoutes), Label: "Suggested", Color: p.Route.Suggested},
		{ID: string(layers.CycletrackLanes), Label: "Cycle track", Color: p.Roadway.CycleTrack},
		{ID: string(layers.BufferedLanes), Label: "Buffered lane", Color: p.Roadway.BufferedLane},
		{ID: string(layers.StandardLanes), Label: "Lane", Color: p.Roadway.Lane},
		{ID: string(layers.ShareBuswayLanes), Label: "Shared bus lane", Color: p.Roadway.ShareBusway},
		{ID: string(layers.ShoulderLanes), Label: "Shoulder", Color: p.Roadway.Shoulder},
		{ID: string(layers.AllowedPaths), Label: "Bicycles allowed", Color: p.Path.Allowed},
		{ID: string(layers.DesignatedPaths), Label: "Designated", Color: p.Path.Designated},
	}
}

func roundLine() map[string]any {
	return map[string]any{"line-join": "round", "line-cap": "round"}
}

func zoomRamp(z0, v0, z1, v1 float64) []any {
	return []any{"interpolate", []any{"linear"}, []any{"zoom"}, z0, v0, z1, v1}
}

func literal(v ...float64) []any {
	if v == nil {
		v = []float64{}
	}
	return []any{"literal", v}
}
