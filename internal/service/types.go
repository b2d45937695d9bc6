// Package service contains the business logic behind the bikemap server.
package service

import (
	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/layers"
)

// NodeState is one checkbox as rendered by the page.
type NodeState struct {
	ID            string `json:"id" doc:"Checkbox identifier" example:"signed-routes"`
	Label         string `json:"label" doc:"Display label" example:"Signed Routes"`
	Depth         int    `json:"depth" doc:"Nesting depth, root is 0"`
	Leaf          bool   `json:"leaf" doc:"Whether the checkbox has no children"`
	Checked       bool   `json:"checked" doc:"Checked state"`
	Indeterminate bool   `json:"indeterminate" doc:"Mixed children, never set on a leaf"`
}

// WidgetState is the full state of one session's layer widget.
type WidgetState struct {
	Session    string          `json:"session" doc:"Session identifier" format:"uuid"`
	Nodes      []NodeState     `json:"nodes" doc:"Checkboxes in pre-order"`
	Filters    layers.Filters  `json:"filters" doc:"Current filter per layer group"`
	Visibility map[string]bool `json:"visibility" doc:"Visibility per map layer"`
}

// MapCommand is a map call the browser should replay.
type MapCommand = layers.Command

// Result is the outcome of one widget operation.
type Result struct {
	State    WidgetState  `json:"state"`
	Commands []MapCommand `json:"commands" doc:"Map calls produced by the operation, in order"`
}

// FeedInfo describes the loaded cycling feed.
type FeedInfo struct {
	Name     string         `json:"name" doc:"Feed file name" example:"export.geojson"`
	Size     string         `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	Features int            `json:"features" doc:"Number of features"`
	Counts   map[string]int `json:"counts" doc:"Features matched by each layer's current filter"`
}

// Event is published on the bus after a settled widget change.
type Event struct {
	Session  string       `json:"session"`
	Action   string       `json:"action"` // "created", "changed", "deleted", "expired"
	ID       string       `json:"id"`     // clicked checkbox, if any
	Commands []MapCommand `json:"commands,omitempty"`
}

func nodeStates(t *checkbox.Tree) []NodeState {
	out := make([]NodeState, 0, t.Len())
	t.Walk(func(n *checkbox.Node) bool {
		out = append(out, NodeState{
			ID:            string(n.ID()),
			Label:         n.Label(),
			Depth:         n.Depth(),
			Leaf:          n.IsLeaf(),
			Checked:       n.Checked(),
			Indeterminate: n.Indeterminate(),
		})
		return true
	})
	return out
}
