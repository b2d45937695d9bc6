// Package expr models the layer filter expressions handed to the browser map.
//
// An Expr is an immutable predicate tree built from boolean combinators
// (all, any, not) and property leaves (==, !=, has). Its JSON form is the
// Mapbox GL expression array, e.g.
//
//	["all", ["==", ["get", "route"], "bicycle"], ["has", "ref"]]
//
// Every operation returns a fresh Expr; nothing is mutated in place.
package expr

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind is the operator at the head of an expression.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindAll
	KindAny
	KindNot
	KindEq
	KindNe
	KindHas
)

var kindOps = map[Kind]string{
	KindAll: "all",
	KindAny: "any",
	KindNot: "!",
	KindEq:  "==",
	KindNe:  "!=",
	KindHas: "has",
}

func (k Kind) String() string {
	if op, ok := kindOps[k]; ok {
		return op
	}
	return "invalid"
}

// ErrInvalid is returned when decoding something that is not a supported
// filter expression.
var ErrInvalid = errors.New("invalid filter expression")

// Expr is a filter predicate. The zero value is invalid and marshals to null.
type Expr struct {
	kind  Kind
	args  []Expr
	field string
	value any
}

// All matches when every clause matches. All() matches everything.
func All(clauses ...Expr) Expr {
	return Expr{kind: KindAll, args: clone(clauses)}
}

// Any matches when at least one clause matches. Any() matches nothing.
func Any(clauses ...Expr) Expr {
	return Expr{kind: KindAny, args: clone(clauses)}
}

// Not negates e.
func Not(e Expr) Expr {
	return Expr{kind: KindNot, args: []Expr{e}}
}

// Eq matches features whose field equals value.
func Eq(field string, value any) Expr {
	return Expr{kind: KindEq, field: field, value: normalize(value)}
}

// Ne matches features whose field is absent or differs from value.
func Ne(field string, value any) Expr {
	return Expr{kind: KindNe, field: field, value: normalize(value)}
}

// Has matches features carrying field.
func Has(field string) Expr {
	return Expr{kind: KindHas, field: field}
}

// With returns a new conjunction of base followed by clauses. If base is
// already an "all" its clauses are flattened into the result.
func With(base Expr, clauses ...Expr) Expr {
	var args []Expr
	if base.kind == KindAll {
		args = append(args, base.args...)
	} else {
		args = append(args, base)
	}
	args = append(args, clauses...)
	return Expr{kind: KindAll, args: args}
}

// Kind returns the operator of e.
func (e Expr) Kind() Kind { return e.kind }

// Args returns a copy of the operands of a combinator.
func (e Expr) Args() []Expr { return clone(e.args) }

// Field returns the property name of a leaf predicate.
func (e Expr) Field() string { return e.field }

// Value returns the comparison value of an == or != leaf.
func (e Expr) Value() any { return e.value }

// IsZero reports whether e is the zero (invalid) expression.
func (e Expr) IsZero() bool { return e.kind == KindInvalid }

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	if a.kind != b.kind || a.field != b.field || len(a.args) != len(b.args) {
		return false
	}
	if !valueEqual(a.value, b.value) {
		return false
	}
	for i := range a.args {
		if !Equal(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

// Wire returns the Mapbox GL array form of e as plain Go values.
func (e Expr) Wire() any {
	switch e.kind {
	case KindAll, KindAny:
		out := make([]any, 0, len(e.args)+1)
		out = append(out, e.kind.String())
		for _, a := range e.args {
			out = append(out, a.Wire())
		}
		return out
	case KindNot:
		return []any{"!", e.args[0].Wire()}
	case KindEq, KindNe:
		return []any{e.kind.String(), []any{"get", e.field}, e.value}
	case KindHas:
		return []any{"has", e.field}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Expr) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Wire())
}

// UnmarshalJSON implements json.Unmarshaler. Both the expression form
// (["==", ["get", "f"], v]) and the legacy filter form (["==", "f", v]) are
// accepted for comparisons.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromWire(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Parse decodes a JSON filter expression.
func Parse(data []byte) (Expr, error) {
	var e Expr
	err := e.UnmarshalJSON(data)
	return e, err
}

// String renders e in its JSON wire form.
func (e Expr) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}

// FromWire converts decoded JSON values back into an Expr.
func FromWire(v any) (Expr, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return Expr{}, fmt.Errorf("%w: expected non-empty array, got %T", ErrInvalid, v)
	}
	op, ok := arr[0].(string)
	if !ok {
		return Expr{}, fmt.Errorf("%w: operator must be a string", ErrInvalid)
	}

	switch op {
	case "all", "any":
		args := make([]Expr, 0, len(arr)-1)
		for _, raw := range arr[1:] {
			a, err := FromWire(raw)
			if err != nil {
				return Expr{}, err
			}
			args = append(args, a)
		}
		if op == "all" {
			return Expr{kind: KindAll, args: args}, nil
		}
		return Expr{kind: KindAny, args: args}, nil

	case "!":
		if len(arr) != 2 {
			return Expr{}, fmt.Errorf("%w: ! takes one operand", ErrInvalid)
		}
		inner, err := FromWire(arr[1])
		if err != nil {
			return Expr{}, err
		}
		return Not(inner), nil

	case "==", "!=":
		if len(arr) != 3 {
			return Expr{}, fmt.Errorf("%w: %s takes two operands", ErrInvalid, op)
		}
		field, err := fieldOf(arr[1])
		if err != nil {
			return Expr{}, err
		}
		if op == "==" {
			return Eq(field, arr[2]), nil
		}
		return Ne(field, arr[2]), nil

	case "has":
		if len(arr) != 2 {
			return Expr{}, fmt.Errorf("%w: has takes one operand", ErrInvalid)
		}
		field, ok := arr[1].(string)
		if !ok {
			return Expr{}, fmt.Errorf("%w: has operand must be a string", ErrInvalid)
		}
		return Has(field), nil
	}
	return Expr{}, fmt.Errorf("%w: unsupported operator %q", ErrInvalid, op)
}

// fieldOf accepts ["get", "name"] or a bare "name".
func fieldOf(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []any:
		if len(t) == 2 {
			if get, _ := t[0].(string); get == "get" {
				if name, ok := t[1].(string); ok {
					return name, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: expected property accessor, got %v", ErrInvalid, v)
}

func clone(in []Expr) []Expr {
	if len(in) == 0 {
		return nil
	}
	out := make([]Expr, len(in))
	copy(out, in)
	return out
}

// normalize folds numeric types into float64 so values decoded from JSON
// compare equal to values built in code.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

func valueEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}
