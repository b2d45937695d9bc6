// Package checkbox implements a tri-state nested checkbox tree.
//
// A click on any node forces its subtree to the clicked value and then
// re-aggregates every ancestor (checked, unchecked or indeterminate) up to
// the root. Listeners receive one batch of Changes per operation, after the
// tree has fully settled.
package checkbox

import (
	"errors"
	"fmt"
)

// ID identifies a node; unique within a tree.
type ID string

var (
	ErrDuplicateID  = errors.New("duplicate checkbox id")
	ErrEmptyID      = errors.New("empty checkbox id")
	ErrUnknownID    = errors.New("unknown checkbox id")
	ErrInconsistent = errors.New("checkbox state inconsistent with children")
)

// Listener receives the settled changes of one operation, the directly
// operated node first followed by any ancestors in bubbling order.
type Listener func(changes []Change)

// Spec describes the static shape of a tree. Checked is honoured on leaves
// only; group state is derived from the leaves when the tree is built.
type Spec struct {
	ID       ID
	Label    string
	Checked  bool
	Children []Spec
}

// Leaf is a convenience constructor for a childless Spec.
func Leaf(id ID, label string, checked bool) Spec {
	return Spec{ID: id, Label: label, Checked: checked}
}

// Group is a convenience constructor for a Spec with children.
func Group(id ID, label string, children ...Spec) Spec {
	return Spec{ID: id, Label: label, Children: children}
}

// Tree owns the root node and an id index.
type Tree struct {
	root     *Node
	index    map[ID]*Node
	order    []ID
	listener Listener

	depth   int
	pending []Change
}

// Build constructs a tree from spec. Duplicate or empty ids fail the build.
func Build(spec Spec) (*Tree, error) {
	t := &Tree{index: make(map[ID]*Node)}
	root, err := t.build(spec, nil, 0)
	if err != nil {
		return nil, err
	}
	t.root = root
	t.reconcile(root)
	return t, nil
}

// MustBuild is Build for static specs; it panics on error.
func MustBuild(spec Spec) *Tree {
	t, err := Build(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) build(spec Spec, parent *Node, depth int) (*Node, error) {
	if spec.ID == "" {
		if parent != nil {
			return nil, fmt.Errorf("%w: child of %q", ErrEmptyID, parent.id)
		}
		return nil, ErrEmptyID
	}
	if _, dup := t.index[spec.ID]; dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, spec.ID)
	}
	n := &Node{
		id:     spec.ID,
		label:  spec.Label,
		depth:  depth,
		parent: parent,
		tree:   t,
	}
	if len(spec.Children) == 0 {
		n.checked = spec.Checked
	}
	t.index[n.id] = n
	t.order = append(t.order, n.id)

	for _, cs := range spec.Children {
		c, err := t.build(cs, n, depth+1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}
	return n, nil
}

// reconcile aggregates every group bottom-up without recording changes.
func (t *Tree) reconcile(n *Node) {
	for _, c := range n.children {
		t.reconcile(c)
	}
	if !n.IsLeaf() {
		s := n.aggregate()
		n.checked, n.indeterminate = s.Checked, s.Indeterminate
	}
}

// OnChange installs the listener, replacing any previous one.
func (t *Tree) OnChange(l Listener) { t.listener = l }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Node returns the node with id, or nil.
func (t *Tree) Node(id ID) *Node { return t.index[id] }

// IDs returns every id in pre-order.
func (t *Tree) IDs() []ID {
	out := make([]ID, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.order) }

// Click delivers a user toggle to exactly one node.
func (t *Tree) Click(id ID, checked bool) error {
	n, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	n.OnUserClick(checked)
	return nil
}

// Toggle clicks id with the opposite of its checked value. An
// indeterminate node is unchecked, so toggling it checks the whole subtree.
func (t *Tree) Toggle(id ID) error {
	n, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	n.OnUserClick(!n.checked)
	return nil
}

// LeafStates returns every leaf of the tree in depth-first order.
func (t *Tree) LeafStates() []LeafState { return t.root.LeafStates() }

// Snapshot returns the state of every node.
func (t *Tree) Snapshot() map[ID]State {
	out := make(map[ID]State, len(t.index))
	for id, n := range t.index {
		out[id] = n.State()
	}
	return out
}

// Walk visits nodes in pre-order until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) { t.root.walk(fn) }

// Validate checks the tri-state invariant on every node.
func (t *Tree) Validate() error {
	var err error
	t.Walk(func(n *Node) bool {
		if n.IsLeaf() {
			if n.indeterminate {
				err = fmt.Errorf("%w: leaf %q is indeterminate", ErrInconsistent, n.id)
			}
		} else if want := n.aggregate(); want != n.State() {
			err = fmt.Errorf("%w: %q is %+v, want %+v", ErrInconsistent, n.id, n.State(), want)
		}
		return err == nil
	})
	return err
}

func (t *Tree) begin() { t.depth++ }

func (t *Tree) end() {
	t.depth--
	if t.depth > 0 {
		return
	}
	batch := t.pending
	t.pending = nil
	if len(batch) > 0 && t.listener != nil {
		t.listener(batch)
	}
}

func (t *Tree) record(n *Node) {
	t.pending = append(t.pending, Change{ID: n.id, State: n.State()})
}
