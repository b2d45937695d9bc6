// Package filter translates facility toggles into map layer filters.
//
// Each function starts from the unrestricted predicate for its layer group
// and appends one exclusion clause per disabled category. When every
// category of a group is disabled the result also carries an empty "any"
// (the disjunction of enabled categories), so it matches no feature while
// still being a valid filter.
package filter

import "github.com/joeblew999/bikemap/internal/expr"

// Feature property names.
const (
	FieldRoute        = "route"
	FieldState        = "state"
	FieldCycleNetwork = "cycle_network"
	FieldRef          = "ref"
	FieldBicycle      = "bicycle"
	FieldHighwayType  = "highwayType"
)

// Cycle network values.
const (
	NetworkGreenway  = "US:NC:Mecklenburg"
	NetworkSigned    = "US:NC:Charlotte"
	NetworkSuggested = "US:NC:Charlotte:Suggested Bike Route"
)

// Cycleway lane values.
const (
	LaneNone        = "no"
	LaneTrack       = "track"
	LaneLane        = "lane"
	LaneShareBusway = "share_busway"
	LaneShoulder    = "shoulder"
	LaneShared      = "shared_lane"
)

// Side selects the left or right cycleway descriptor of a road.
type Side string

const (
	Left  Side = "Left"
	Right Side = "Right"
)

// Field returns the lane descriptor property for the side, e.g. "cyclewayLeft".
func (s Side) Field() string { return "cycleway" + string(s) }

// BufferField returns the buffer attribute for the side, e.g. "cyclewayLeftBuffer".
func (s Side) BufferField() string { return s.Field() + "Buffer" }

// Routes holds the route category toggles.
type Routes struct {
	Greenway  bool
	Signed    bool
	Suggested bool
}

// Lanes holds the lane category toggles.
type Lanes struct {
	Cycletrack  bool
	Buffered    bool
	Standard    bool
	ShareBusway bool
	Shoulder    bool
}

// Paths holds the path category toggles.
type Paths struct {
	Allowed    bool
	Designated bool
}

// BaseRoute matches every bicycle route that isn't proposed.
func BaseRoute() expr.Expr {
	return expr.All(
		expr.Eq(FieldRoute, "bicycle"),
		expr.Ne(FieldState, "proposed"),
	)
}

// BaseLane matches roads with a lane descriptor on side other than "no".
func BaseLane(side Side) expr.Expr {
	return expr.All(
		expr.Has(side.Field()),
		expr.Ne(side.Field(), LaneNone),
	)
}

// BasePath matches bicycle-accessible paths.
func BasePath() expr.Expr {
	return expr.All(
		expr.Has(FieldBicycle),
		expr.Eq(FieldHighwayType, "path"),
	)
}

// SignedRoute matches routes of the signed city network. Signed routes
// carry a ref; the same network without one is not signed.
func SignedRoute() expr.Expr {
	return expr.All(
		expr.Eq(FieldCycleNetwork, NetworkSigned),
		expr.Has(FieldRef),
	)
}

// BufferedLane matches lanes with a buffer attribute on side.
func BufferedLane(side Side) expr.Expr {
	return expr.All(
		expr.Eq(side.Field(), LaneLane),
		expr.Has(side.BufferField()),
	)
}

// StandardLane matches lanes without a buffer attribute on side.
func StandardLane(side Side) expr.Expr {
	return expr.All(
		expr.Eq(side.Field(), LaneLane),
		expr.Not(expr.Has(side.BufferField())),
	)
}

// RouteFilter returns the route layer filter for the given toggles.
func RouteFilter(greenway, signed, suggested bool) expr.Expr {
	var clauses []expr.Expr
	if !greenway {
		clauses = append(clauses, expr.Ne(FieldCycleNetwork, NetworkGreenway))
	}
	if !signed {
		clauses = append(clauses, expr.Not(SignedRoute()))
	}
	if !suggested {
		clauses = append(clauses, expr.Ne(FieldCycleNetwork, NetworkSuggested))
	}
	if !greenway && !signed && !suggested {
		clauses = append(clauses, expr.Any())
	}
	return expr.With(BaseRoute(), clauses...)
}

// LaneFilter returns the left and right lane layer filters.
func LaneFilter(cycletrack, buffered, standard, shareBusway, shoulder bool) (left, right expr.Expr) {
	side := func(s Side) expr.Expr {
		var clauses []expr.Expr
		if !cycletrack {
			clauses = append(clauses, expr.Ne(s.Field(), LaneTrack))
		}
		if !buffered {
			clauses = append(clauses, expr.Not(BufferedLane(s)))
		}
		if !standard {
			clauses = append(clauses, expr.Not(StandardLane(s)))
		}
		if !shareBusway {
			clauses = append(clauses, expr.Ne(s.Field(), LaneShareBusway))
		}
		if !shoulder {
			clauses = append(clauses, expr.Ne(s.Field(), LaneShoulder))
		}
		if !cycletrack && !buffered && !standard && !shareBusway && !shoulder {
			clauses = append(clauses, expr.Any())
		}
		return expr.With(BaseLane(s), clauses...)
	}
	return side(Left), side(Right)
}

// PathFilter returns the path layer filter.
func PathFilter(allowed, designated bool) expr.Expr {
	var clauses []expr.Expr
	if !allowed {
		clauses = append(clauses, expr.Ne(FieldBicycle, "yes"))
	}
	if !designated {
		clauses = append(clauses, expr.Ne(FieldBicycle, "designated"))
	}
	if !allowed && !designated {
		clauses = append(clauses, expr.Any())
	}
	return expr.With(BasePath(), clauses...)
}

// Filter is shorthand for RouteFilter with a Routes value.
func (r Routes) Filter() expr.Expr {
	return RouteFilter(r.Greenway, r.Signed, r.Suggested)
}

// Filter is shorthand for LaneFilter with a Lanes value.
func (l Lanes) Filter() (left, right expr.Expr) {
	return LaneFilter(l.Cycletrack, l.Buffered, l.Standard, l.ShareBusway, l.Shoulder)
}

// Filter is shorthand for PathFilter with a Paths value.
func (p Paths) Filter() expr.Expr {
	return PathFilter(p.Allowed, p.Designated)
}
