// Package layers wires the facility checkbox tree to the map renderer.
//
// Every settled change batch from the tree is dispatched to the affected
// layer groups. For each group the widget re-derives the filter from the
// current leaf states and re-applies visibility (visible while the group is
// checked or indeterminate).
package layers

import (
	"errors"
	"log/slog"

	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/expr"
	"github.com/joeblew999/bikemap/internal/filter"
)

// Filters is the current filter of every map layer group.
type Filters struct {
	Routes     expr.Expr `json:"routes"`
	LanesLeft  expr.Expr `json:"lanesLeft"`
	LanesRight expr.Expr `json:"lanesRight"`
	Paths      expr.Expr `json:"paths"`
}

// Widget owns a checkbox tree and applies its state to a Map.
type Widget struct {
	tree     *checkbox.Tree
	m        Map
	dirty    bool
	logger   *slog.Logger
	observer func([]checkbox.Change)
}

// Option configures a Widget.
type Option func(*widgetOptions)

type widgetOptions struct {
	spec   checkbox.Spec
	logger *slog.Logger
}

// WithSpec replaces the default checkbox tree.
func WithSpec(spec checkbox.Spec) Option {
	return func(o *widgetOptions) { o.spec = spec }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *widgetOptions) { o.logger = l }
}

// New builds the widget. m may be nil when the map isn't ready yet; changes
// are then held back until Attach.
func New(m Map, opts ...Option) (*Widget, error) {
	o := widgetOptions{spec: DefaultTree(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	tree, err := checkbox.Build(o.spec)
	if err != nil {
		return nil, err
	}
	w := &Widget{
		tree:   tree,
		logger: o.logger.With("c", "widget"),
		dirty:  true,
	}
	tree.OnChange(w.handle)
	if m != nil {
		w.Attach(m)
	}
	return w, nil
}

// Attach sets the map and pushes the full current state to it.
func (w *Widget) Attach(m Map) {
	w.m = m
	if m == nil {
		return
	}
	for _, g := range allGroups {
		w.apply(g)
	}
	w.dirty = false
}

// Detach drops the map; later changes are held until the next Attach.
func (w *Widget) Detach() { w.m = nil }

// Attached reports whether a map is set.
func (w *Widget) Attached() bool { return w.m != nil }

// Dirty reports whether changes happened while no map was attached.
func (w *Widget) Dirty() bool { return w.dirty }

// OnChange registers an observer called after each batch has been applied.
func (w *Widget) OnChange(fn func([]checkbox.Change)) { w.observer = fn }

// Tree returns the underlying checkbox tree.
func (w *Widget) Tree() *checkbox.Tree { return w.tree }

// Click applies a user toggle. Unknown ids are ignored and reported false.
func (w *Widget) Click(id checkbox.ID, checked bool) bool {
	return w.known(id, w.tree.Click(id, checked))
}

// Toggle flips id; an indeterminate group is forced checked.
func (w *Widget) Toggle(id checkbox.ID) bool {
	return w.known(id, w.tree.Toggle(id))
}

// SetAll forces every facility on or off.
func (w *Widget) SetAll(checked bool) {
	w.tree.Root().SetChecked(checked)
}

func (w *Widget) known(id checkbox.ID, err error) bool {
	if errors.Is(err, checkbox.ErrUnknownID) {
		w.logger.Debug("ignoring click on unknown checkbox", "id", id)
		return false
	}
	return true
}

// Filters derives every group filter from the current leaf states.
func (w *Widget) Filters() Filters {
	leaves := w.leaves()
	left, right := lanesOf(leaves).Filter()
	return Filters{
		Routes:     routesOf(leaves).Filter(),
		LanesLeft:  left,
		LanesRight: right,
		Paths:      pathsOf(leaves).Filter(),
	}
}

// Visibility returns the visibility of every map layer.
func (w *Widget) Visibility() map[string]bool {
	out := make(map[string]bool)
	for _, g := range allGroups {
		v := w.visible(g)
		for _, l := range g.mapLayers() {
			out[l] = v
		}
	}
	return out
}

func (w *Widget) handle(changes []checkbox.Change) {
	affected := make(map[group]bool)
	for i, c := range changes {
		// The root only fans out when it was the node forced; as an
		// ancestor it follows a change already dispatched.
		if c.ID == Root && i > 0 {
			continue
		}
		groups, ok := dispatch[c.ID]
		if !ok {
			w.logger.Debug("no layer group for checkbox", "id", c.ID)
			continue
		}
		for _, g := range groups {
			affected[g] = true
		}
	}

	if w.m == nil {
		w.dirty = true
		w.logger.Debug("map not attached, deferring", "changes", len(changes))
	} else {
		for _, g := range allGroups {
			if affected[g] {
				w.apply(g)
			}
		}
	}

	if w.observer != nil {
		w.observer(changes)
	}
}

// apply pushes one group's visibility and filters to the map.
func (w *Widget) apply(g group) {
	visibility := Hidden
	if w.visible(g) {
		visibility = Visible
	}
	for _, l := range g.mapLayers() {
		w.m.SetLayoutProperty(l, PropVisibility, visibility)
	}

	leaves := w.leaves()
	switch g {
	case groupRoutes:
		f := routesOf(leaves).Filter()
		w.m.SetFilter(RouteLinesLayer, f)
		w.m.SetFilter(RouteSymbolsLayer, f)
	case groupLanes:
		left, right := lanesOf(leaves).Filter()
		w.m.SetFilter(LanesLeftLayer, left)
		w.m.SetFilter(LanesRightLayer, right)
	case groupPaths:
		w.m.SetFilter(PathsLayer, pathsOf(leaves).Filter())
	}
	w.logger.Debug("applied layer group", "group", g, "visibility", visibility)
}

func (w *Widget) visible(g group) bool {
	n := w.tree.Node(g.root())
	if n == nil {
		return true
	}
	return n.State().Enabled()
}

func (w *Widget) leaves() map[checkbox.ID]bool {
	out := make(map[checkbox.ID]bool)
	for _, ls := range w.tree.LeafStates() {
		out[ls.ID] = ls.Checked
	}
	return out
}

func routesOf(l map[checkbox.ID]bool) filter.Routes {
	return filter.Routes{
		Greenway:  l[GreenwayRoutes],
		Signed:    l[SignedRoutes],
		Suggested: l[SuggestedRoutes],
	}
}

func lanesOf(l map[checkbox.ID]bool) filter.Lanes {
	return filter.Lanes{
		Cycletrack:  l[CycletrackLanes],
		Buffered:    l[BufferedLanes],
		Standard:    l[StandardLanes],
		ShareBusway: l[ShareBuswayLanes],
		Shoulder:    l[ShoulderLanes],
	}
}

func pathsOf(l map[checkbox.ID]bool) filter.Paths {
	return filter.Paths{
		Allowed:    l[AllowedPaths],
		Designated: l[DesignatedPaths],
	}
}
