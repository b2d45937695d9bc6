package layers

import "github.com/joeblew999/bikemap/internal/expr"

// Layout property names and values understood by the map renderer.
const (
	PropVisibility = "visibility"
	Visible        = "visible"
	Hidden         = "none"
)

// Map is the rendering collaborator. Both calls are assumed synchronous and
// safe to repeat with an unchanged value.
type Map interface {
	SetLayoutProperty(layerID, name string, value any)
	SetFilter(layerID string, filter expr.Expr)
}

// Command operations.
const (
	OpSetLayoutProperty = "setLayoutProperty"
	OpSetFilter         = "setFilter"
)

// Command is one recorded Map call.
type Command struct {
	Op       string     `json:"op"`
	Layer    string     `json:"layer"`
	Property string     `json:"property,omitempty"`
	Value    any        `json:"value,omitempty"`
	Filter   *expr.Expr `json:"filter,omitempty"`
}

// CommandBuffer is a Map that records calls in order so they can be
// forwarded to a remote renderer.
type CommandBuffer struct {
	cmds []Command
}

func (b *CommandBuffer) SetLayoutProperty(layerID, name string, value any) {
	b.cmds = append(b.cmds, Command{Op: OpSetLayoutProperty, Layer: layerID, Property: name, Value: value})
}

func (b *CommandBuffer) SetFilter(layerID string, filter expr.Expr) {
	f := filter
	b.cmds = append(b.cmds, Command{Op: OpSetFilter, Layer: layerID, Filter: &f})
}

// Commands returns the recorded calls.
func (b *CommandBuffer) Commands() []Command {
	out := make([]Command, len(b.cmds))
	copy(out, b.cmds)
	return out
}

// Drain returns the recorded calls and clears the buffer.
func (b *CommandBuffer) Drain() []Command {
	out := b.cmds
	b.cmds = nil
	return out
}

// Len returns the number of recorded calls.
func (b *CommandBuffer) Len() int { return len(b.cmds) }
