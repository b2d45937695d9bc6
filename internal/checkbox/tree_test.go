package checkbox

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

// threeLevel builds root → {a, b} → {a1, a2, a3}, {b1, b2}, all checked.
func threeLevel(t *testing.T) *Tree {
	t.Helper()
	tree, err := Build(Group("root", "Root",
		Group("a", "A", Leaf("a1", "A1", true), Leaf("a2", "A2", true), Leaf("a3", "A3", true)),
		Group("b", "B", Leaf("b1", "B1", true), Leaf("b2", "B2", true)),
	))
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func record(tree *Tree) *[][]Change {
	var batches [][]Change
	tree.OnChange(func(c []Change) { batches = append(batches, c) })
	return &batches
}

func TestBuildRejectsDuplicateID(t *testing.T) {
	_, err := Build(Group("root", "", Leaf("x", "", true), Group("g", "", Leaf("x", "", false))))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestBuildRejectsEmptyID(t *testing.T) {
	_, err := Build(Group("root", "", Leaf("", "", true)))
	if !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestMustBuildPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustBuild(Group("root", "", Leaf("root", "", true)))
}

func TestBuildAggregatesInitialState(t *testing.T) {
	tree := MustBuild(Group("root", "",
		Group("a", "", Leaf("a1", "", true), Leaf("a2", "", false)),
		Group("b", "", Leaf("b1", "", false)),
	))
	if got := tree.Node("a").State(); got != (State{Indeterminate: true}) {
		t.Errorf("a: got %+v, want indeterminate", got)
	}
	if got := tree.Node("b").State(); got != (State{}) {
		t.Errorf("b: got %+v, want unchecked", got)
	}
	if got := tree.Root().State(); got != (State{Indeterminate: true}) {
		t.Errorf("root: got %+v, want indeterminate", got)
	}
	if err := tree.Validate(); err != nil {
		t.Error(err)
	}
}

func TestUncheckLeafPropagatesUp(t *testing.T) {
	tree := threeLevel(t)
	batches := record(tree)

	if err := tree.Click("a2", false); err != nil {
		t.Fatal(err)
	}

	if got := tree.Node("a").State(); got != (State{Indeterminate: true}) {
		t.Errorf("a: got %+v, want indeterminate", got)
	}
	if got := tree.Root().State(); got != (State{Indeterminate: true}) {
		t.Errorf("root: got %+v, want indeterminate", got)
	}
	for _, id := range []ID{"a1", "a3", "b1", "b2"} {
		if !tree.Node(id).Checked() {
			t.Errorf("%s should remain checked", id)
		}
	}
	if got := tree.Node("b").State(); got != (State{Checked: true}) {
		t.Errorf("b: got %+v, want checked", got)
	}

	if len(*batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(*batches))
	}
	var ids []ID
	for _, c := range (*batches)[0] {
		ids = append(ids, c.ID)
	}
	if want := []ID{"a2", "a", "root"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("change order: got %v, want %v", ids, want)
	}
}

func TestBubbleStopsWhenAggregateUnchanged(t *testing.T) {
	tree := threeLevel(t)
	tree.Click("a1", false)
	batches := record(tree)

	// a stays indeterminate, so root is not re-reported.
	tree.Click("a2", false)
	got := (*batches)[0]
	if len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("expected only a2 to change, got %+v", got)
	}
}

func TestLastLeafUncheckedMakesGroupUnchecked(t *testing.T) {
	tree := threeLevel(t)
	tree.Click("b1", false)
	tree.Click("b2", false)
	if got := tree.Node("b").State(); got != (State{}) {
		t.Errorf("b: got %+v, want unchecked and determinate", got)
	}
	tree.Click("b1", true)
	tree.Click("b2", true)
	if got := tree.Node("b").State(); got != (State{Checked: true}) {
		t.Errorf("b: got %+v, want checked", got)
	}
	if got := tree.Root().State(); got != (State{Checked: true}) {
		t.Errorf("root: got %+v, want checked", got)
	}
}

func TestSetCheckedRootForcesEveryNode(t *testing.T) {
	tree := threeLevel(t)
	tree.Click("a1", false)
	tree.Click("b2", false)

	tree.Root().SetChecked(false)

	for id, s := range tree.Snapshot() {
		if s != (State{}) {
			t.Errorf("%s: got %+v, want unchecked and determinate", id, s)
		}
	}
}

func TestSetCheckedEmitsOneChangeAndIsIdempotent(t *testing.T) {
	tree := threeLevel(t)
	batches := record(tree)

	tree.Node("a").SetChecked(false)
	tree.Node("a").SetChecked(false)

	if len(*batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(*batches))
	}
	if got := (*batches)[0]; len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected one change for a, got %+v", got)
	}
	for _, id := range []ID{"a1", "a2", "a3"} {
		if tree.Node(id).Checked() {
			t.Errorf("%s should be unchecked", id)
		}
	}
}

func TestSetCheckedOnInnerNodeLeavesAncestorsStale(t *testing.T) {
	tree := threeLevel(t)

	tree.Node("a").SetChecked(false)
	if !tree.Root().Checked() {
		t.Fatal("root should not be re-aggregated")
	}
	if err := tree.Validate(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("expected ErrInconsistent, got %v", err)
	}

	tree.Node("a").OnUserClick(true)
	if err := tree.Validate(); err != nil {
		t.Errorf("after OnUserClick: %v", err)
	}
}

func TestToggleIndeterminateGroupChecksSubtree(t *testing.T) {
	tree := threeLevel(t)
	tree.Click("a1", false)
	if !tree.Node("a").Indeterminate() {
		t.Fatal("precondition: a should be indeterminate")
	}

	if err := tree.Toggle("a"); err != nil {
		t.Fatal(err)
	}
	for _, ls := range tree.Node("a").LeafStates() {
		if !ls.Checked {
			t.Errorf("%s should be checked after toggling an indeterminate group", ls.ID)
		}
	}
	if got := tree.Root().State(); got != (State{Checked: true}) {
		t.Errorf("root: got %+v, want checked", got)
	}
}

func TestListenerObservesSettledTree(t *testing.T) {
	tree := threeLevel(t)
	calls := 0
	tree.OnChange(func([]Change) {
		calls++
		if err := tree.Validate(); err != nil {
			t.Errorf("listener saw unsettled tree: %v", err)
		}
	})
	tree.Click("a", false)
	tree.Click("b1", false)
	tree.Click("root", true)
	if calls != 3 {
		t.Errorf("expected 3 listener calls, got %d", calls)
	}
}

func TestClickUnknownID(t *testing.T) {
	tree := threeLevel(t)
	if err := tree.Click("nope", true); !errors.Is(err, ErrUnknownID) {
		t.Errorf("expected ErrUnknownID, got %v", err)
	}
	if err := tree.Toggle("nope"); !errors.Is(err, ErrUnknownID) {
		t.Errorf("expected ErrUnknownID, got %v", err)
	}
}

func TestLeafStatesOrder(t *testing.T) {
	tree := threeLevel(t)
	tree.Click("b1", false)
	want := []LeafState{
		{"a1", true}, {"a2", true}, {"a3", true}, {"b1", false}, {"b2", true},
	}
	if got := tree.LeafStates(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := tree.Node("b2").LeafStates(); !reflect.DeepEqual(got, []LeafState{{"b2", true}}) {
		t.Errorf("leaf should report itself, got %v", got)
	}
}

func TestLeafIsNeverIndeterminate(t *testing.T) {
	tree := MustBuild(Leaf("solo", "", false))
	tree.Click("solo", true)
	tree.Root().SetChecked(false)
	if tree.Root().Indeterminate() {
		t.Error("leaf became indeterminate")
	}
}

// genSpec draws a random tree of unique ids.
func genSpec(t *rapid.T, next *int, depth int) Spec {
	*next++
	id := ID(fmt.Sprintf("n%d", *next))
	n := 0
	if depth < 3 {
		n = rapid.IntRange(0, 3).Draw(t, "children")
	}
	if n == 0 {
		return Leaf(id, "", rapid.Bool().Draw(t, "checked"))
	}
	s := Spec{ID: id}
	for range n {
		s.Children = append(s.Children, genSpec(t, next, depth+1))
	}
	return s
}

func TestPropagationInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var next int
		tree, err := Build(genSpec(t, &next, 0))
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.Validate(); err != nil {
			t.Fatalf("after build: %v", err)
		}
		ids := tree.IDs()

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for range steps {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			v := rapid.Bool().Draw(t, "value")
			if rapid.Bool().Draw(t, "toggle") {
				tree.Toggle(id)
			} else {
				tree.Click(id, v)
			}
			if err := tree.Validate(); err != nil {
				t.Fatalf("after click %s=%v: %v", id, v, err)
			}
			n := tree.Node(id)
			n.walk(func(c *Node) bool {
				if c.Checked() != n.Checked() || c.Indeterminate() {
					t.Fatalf("%s not forced to %v by click on %s", c.ID(), n.Checked(), id)
				}
				return true
			})
		}
	})
}

func TestSetCheckedIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var next int
		tree := MustBuild(genSpec(t, &next, 0))
		v := rapid.Bool().Draw(t, "value")

		tree.Root().SetChecked(v)
		first := tree.Snapshot()

		emitted := false
		tree.OnChange(func([]Change) { emitted = true })
		tree.Root().SetChecked(v)

		if emitted {
			t.Fatal("repeated SetChecked emitted a change")
		}
		if !reflect.DeepEqual(first, tree.Snapshot()) {
			t.Fatal("repeated SetChecked changed the tree")
		}
		for id, s := range first {
			if s.Checked != v || s.Indeterminate {
				t.Fatalf("%s: got %+v after SetChecked(%v)", id, s, v)
			}
		}
	})
}
