package expr

import "github.com/paulmach/orb/geojson"

// Match evaluates e against a feature's properties using the map renderer's
// semantics: a missing property reads as null, so == is false and != is
// true for it.
func (e Expr) Match(props geojson.Properties) bool {
	switch e.kind {
	case KindAll:
		for _, a := range e.args {
			if !a.Match(props) {
				return false
			}
		}
		return true
	case KindAny:
		for _, a := range e.args {
			if a.Match(props) {
				return true
			}
		}
		return false
	case KindNot:
		return !e.args[0].Match(props)
	case KindEq:
		v, ok := props[e.field]
		return ok && valueEqual(v, e.value)
	case KindNe:
		v, ok := props[e.field]
		return !ok || !valueEqual(v, e.value)
	case KindHas:
		_, ok := props[e.field]
		return ok
	}
	return false
}

// MatchFeatures returns the features of fc matched by e.
func (e Expr) MatchFeatures(fc *geojson.FeatureCollection) []*geojson.Feature {
	if fc == nil {
		return nil
	}
	var out []*geojson.Feature
	for _, f := range fc.Features {
		if e.Match(f.Properties) {
			out = append(out, f)
		}
	}
	return out
}

// MatchesNothing reports whether e is unsatisfiable from its structure
// alone, independent of any feature data.
func MatchesNothing(e Expr) bool {
	switch e.kind {
	case KindAny:
		for _, a := range e.args {
			if !MatchesNothing(a) {
				return false
			}
		}
		return true
	case KindAll:
		for _, a := range e.args {
			if MatchesNothing(a) {
				return true
			}
		}
		return false
	case KindNot:
		inner := e.args[0]
		return inner.kind == KindAll && len(inner.args) == 0
	}
	return false
}
