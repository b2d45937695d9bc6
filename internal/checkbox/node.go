package checkbox

// State is the tri-state value of a node. Indeterminate implies !Checked.
type State struct {
	Checked       bool `json:"checked"`
	Indeterminate bool `json:"indeterminate"`
}

// Enabled reports whether any part of the node's subtree is on.
func (s State) Enabled() bool { return s.Checked || s.Indeterminate }

// Change reports the settled state of one node after an operation.
type Change struct {
	ID ID `json:"id"`
	State
}

// LeafState is the {id, checked} pair of a leaf.
type LeafState struct {
	ID      ID   `json:"id"`
	Checked bool `json:"checked"`
}

// Node is one checkbox. Nodes are created by Build and owned by their
// parent; the parent pointer is only used to route aggregation upwards.
type Node struct {
	id            ID
	label         string
	depth         int
	checked       bool
	indeterminate bool
	children      []*Node
	parent        *Node
	tree          *Tree
}

func (n *Node) ID() ID { return n.id }
func (n *Node) Label() string { return n.label }
func (n *Node) Depth() int { return n.depth }
func (n *Node) Checked() bool { return n.checked }
func (n *Node) Indeterminate() bool { return n.indeterminate }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }
func (n *Node) State() State { return State{Checked: n.checked, Indeterminate: n.indeterminate} }

// Children returns the node's children in order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// SetChecked sets the node and its whole subtree to checked, all
// determinate. Ancestors are not re-aggregated, so on a non-root node they
// may no longer agree with their children and Tree.Validate fails until the
// next aggregation; use OnUserClick for non-root nodes. A single Change is reported for this node if anything
// in the subtree changed, so repeating the call reports nothing.
func (n *Node) SetChecked(checked bool) {
	n.tree.begin()
	defer n.tree.end()

	if n.force(checked) {
		n.tree.record(n)
	}
}

// OnUserClick applies a direct toggle of this node's control: the subtree
// is forced to checked and every ancestor re-aggregates up to the root.
// Listeners observe the tree only after both passes have settled.
func (n *Node) OnUserClick(checked bool) {
	n.tree.begin()
	defer n.tree.end()

	if n.force(checked) {
		n.tree.record(n)
	}
	if n.parent != nil {
		n.parent.onChildChanged()
	}
}

// LeafStates returns the leaves under n in depth-first order, or n itself
// if it is a leaf.
func (n *Node) LeafStates() []LeafState {
	var out []LeafState
	n.walk(func(c *Node) bool {
		if c.IsLeaf() {
			out = append(out, LeafState{ID: c.id, Checked: c.checked})
		}
		return true
	})
	return out
}

// force sets the subtree without bubbling; the forced state is consistent
// with the aggregate by construction. Reports whether anything changed.
func (n *Node) force(checked bool) bool {
	changed := n.checked != checked || n.indeterminate
	n.checked, n.indeterminate = checked, false
	for _, c := range n.children {
		if c.force(checked) {
			changed = true
		}
	}
	return changed
}

// onChildChanged recomputes the aggregate after a direct child settled and
// bubbles to the parent only when the aggregate moved.
func (n *Node) onChildChanged() {
	next := n.aggregate()
	if next == n.State() {
		return
	}
	n.checked, n.indeterminate = next.Checked, next.Indeterminate
	n.tree.record(n)
	if n.parent != nil {
		n.parent.onChildChanged()
	}
}

// aggregate derives a group's state from its direct children. An
// indeterminate child counts as disagreeing.
func (n *Node) aggregate() State {
	if n.IsLeaf() {
		return State{Checked: n.checked}
	}
	allChecked, allUnchecked := true, true
	for _, c := range n.children {
		if c.indeterminate {
			allChecked, allUnchecked = false, false
			break
		}
		if c.checked {
			allUnchecked = false
		} else {
			allChecked = false
		}
	}
	switch {
	case allChecked:
		return State{Checked: true}
	case allUnchecked:
		return State{}
	default:
		return State{Indeterminate: true}
	}
}

// walk visits n and its descendants in pre-order until fn returns false.
func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
