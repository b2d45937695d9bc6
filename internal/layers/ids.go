package layers

import "github.com/joeblew999/bikemap/internal/checkbox"

// Checkbox identifiers. The string values are the vocabulary shared with
// the page markup and must stay stable across UI rebuilds.
const (
	Root checkbox.ID = "layers"

	Routes          checkbox.ID = "routes"
	GreenwayRoutes  checkbox.ID = "greenway-routes"
	SignedRoutes    checkbox.ID = "signed-routes"
	SuggestedRoutes checkbox.ID = "suggested-routes"

	Lanes            checkbox.ID = "cycle-lanes"
	CycletrackLanes  checkbox.ID = "cycletrack-lanes"
	BufferedLanes    checkbox.ID = "buffered-lanes"
	StandardLanes    checkbox.ID = "standard-lanes"
	ShareBuswayLanes checkbox.ID = "share-busway-lanes"
	ShoulderLanes    checkbox.ID = "shoulder-lanes"

	Paths           checkbox.ID = "cycle-paths"
	AllowedPaths    checkbox.ID = "allowed-cycle-paths"
	DesignatedPaths checkbox.ID = "designated-cycle-paths"
)

// Map layer identifiers.
const (
	RouteLinesLayer   = "cycling-route-lines"
	RouteSymbolsLayer = "cycling-route-symbols"
	LanesLeftLayer    = "cycling-lanes-left"
	LanesRightLayer   = "cycling-lanes-right"
	PathsLayer        = "cycling-paths"
)

// group is one of the three filterable layer groups.
type group uint8

const (
	groupRoutes group = iota + 1
	groupLanes
	groupPaths
)

var allGroups = []group{groupRoutes, groupLanes, groupPaths}

func (g group) String() string {
	switch g {
	case groupRoutes:
		return "routes"
	case groupLanes:
		return "lanes"
	case groupPaths:
		return "paths"
	}
	return "unknown"
}

// root returns the checkbox that owns the group.
func (g group) root() checkbox.ID {
	switch g {
	case groupRoutes:
		return Routes
	case groupLanes:
		return Lanes
	}
	return Paths
}

// mapLayers returns the map layers whose visibility follows the group.
func (g group) mapLayers() []string {
	switch g {
	case groupRoutes:
		return []string{RouteLinesLayer, RouteSymbolsLayer}
	case groupLanes:
		return []string{LanesRightLayer, LanesLeftLayer}
	}
	return []string{PathsLayer}
}

// dispatch maps every known checkbox to the groups it affects. Ids not in
// the table are ignored.
var dispatch = map[checkbox.ID][]group{
	Root: allGroups,

	Routes:          {groupRoutes},
	GreenwayRoutes:  {groupRoutes},
	SignedRoutes:    {groupRoutes},
	SuggestedRoutes: {groupRoutes},

	Lanes:            {groupLanes},
	CycletrackLanes:  {groupLanes},
	BufferedLanes:    {groupLanes},
	StandardLanes:    {groupLanes},
	ShareBuswayLanes: {groupLanes},
	ShoulderLanes:    {groupLanes},

	Paths:           {groupPaths},
	AllowedPaths:    {groupPaths},
	DesignatedPaths: {groupPaths},
}

// DefaultTree returns the layer checkbox tree with every facility enabled.
func DefaultTree() checkbox.Spec {
	return checkbox.Group(Root, "Bike Facilities",
		checkbox.Group(Routes, "Routes",
			checkbox.Leaf(GreenwayRoutes, "Greenway Routes", true),
			checkbox.Leaf(SignedRoutes, "Signed Routes", true),
			checkbox.Leaf(SuggestedRoutes, "Suggested Routes", true),
		),
		checkbox.Group(Lanes, "Cycle Lanes",
			checkbox.Leaf(CycletrackLanes, "Cycle Tracks", true),
			checkbox.Leaf(BufferedLanes, "Buffered Lanes", true),
			checkbox.Leaf(StandardLanes, "Standard Lanes", true),
			checkbox.Leaf(ShareBuswayLanes, "Shared Bus Lanes", true),
			checkbox.Leaf(ShoulderLanes, "Shoulders", true),
		),
		checkbox.Group(Paths, "Cycle Paths",
			checkbox.Leaf(AllowedPaths, "Allowed Cycle Paths", true),
			checkbox.Leaf(DesignatedPaths, "Designated Cycle Paths", true),
		),
	)
}
