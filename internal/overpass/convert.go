package overpass

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"

	"github.com/joeblew999/bikemap/internal/filter"
)

// ErrInvalidResponse is returned for input that isn't Overpass JSON.
var ErrInvalidResponse = errors.New("invalid overpass response")

// Path-like highway classes drawn on the path layer.
var pathHighways = map[string]bool{
	"cycleway":   true,
	"path":       true,
	"footway":    true,
	"pedestrian": true,
	"track":      true,
	"bridleway":  true,
}

type way struct {
	id    int64
	nodes []int64
	tags  map[string]string
}

type member struct {
	kind string
	ref  int64
	role string
}

type relation struct {
	id      int64
	members []member
	tags    map[string]string
}

// Convert turns an Overpass JSON response into the cycling feed: one
// LineString per tagged way and one MultiLineString per bicycle route
// relation. Ways whose nodes can't be resolved are dropped.
func Convert(data []byte) (*geojson.FeatureCollection, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidResponse
	}
	elements := gjson.GetBytes(data, "elements")
	if !elements.IsArray() {
		return nil, fmt.Errorf("%w: missing elements", ErrInvalidResponse)
	}

	nodes := make(map[int64]orb.Point)
	ways := make(map[int64]*way)
	var wayOrder []int64
	var relations []*relation

	elements.ForEach(func(_, el gjson.Result) bool {
		id := el.Get("id").Int()
		switch el.Get("type").String() {
		case "node":
			nodes[id] = orb.Point{el.Get("lon").Float(), el.Get("lat").Float()}
		case "way":
			w, ok := ways[id]
			if !ok {
				w = &way{id: id}
				ways[id] = w
				wayOrder = append(wayOrder, id)
			}
			// Skeleton output repeats ways without tags; keep the first tags seen.
			if len(w.nodes) == 0 {
				for _, n := range el.Get("nodes").Array() {
					w.nodes = append(w.nodes, n.Int())
				}
			}
			if w.tags == nil {
				w.tags = tags(el)
			}
		case "relation":
			r := &relation{id: id, tags: tags(el)}
			el.Get("members").ForEach(func(_, m gjson.Result) bool {
				r.members = append(r.members, member{
					kind: m.Get("type").String(),
					ref:  m.Get("ref").Int(),
					role: m.Get("role").String(),
				})
				return true
			})
			relations = append(relations, r)
		}
		return true
	})

	line := func(w *way) orb.LineString {
		ls := make(orb.LineString, 0, len(w.nodes))
		for _, n := range w.nodes {
			if p, ok := nodes[n]; ok {
				ls = append(ls, p)
			}
		}
		return ls
	}

	fc := geojson.NewFeatureCollection()
	for _, id := range wayOrder {
		w := ways[id]
		if !cycling(w.tags) {
			continue
		}
		ls := line(w)
		if len(ls) < 2 {
			continue
		}
		f := geojson.NewFeature(ls)
		f.ID = fmt.Sprintf("way/%d", w.id)
		f.Properties = wayProperties(w.tags)
		fc.Append(f)
	}

	for _, r := range relations {
		if r.tags[filter.FieldRoute] != "bicycle" {
			continue
		}
		var mls orb.MultiLineString
		for _, m := range r.members {
			if m.kind != "way" {
				continue
			}
			w, ok := ways[m.ref]
			if !ok {
				continue
			}
			if ls := line(w); len(ls) >= 2 {
				mls = append(mls, ls)
			}
		}
		if len(mls) == 0 {
			continue
		}
		f := geojson.NewFeature(mls)
		f.ID = fmt.Sprintf("relation/%d", r.id)
		f.Properties = routeProperties(r.tags)
		fc.Append(f)
	}
	return fc, nil
}

func tags(el gjson.Result) map[string]string {
	t := el.Get("tags")
	if !t.Exists() {
		return nil
	}
	out := make(map[string]string)
	t.ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out
}

// cycling reports whether a way carries any tag the feed draws.
func cycling(t map[string]string) bool {
	if t["highway"] == "cycleway" {
		return true
	}
	for k := range t {
		if k == "cycleway" || strings.HasPrefix(k, "cycleway:") {
			return true
		}
	}
	return false
}

func wayProperties(t map[string]string) geojson.Properties {
	p := geojson.Properties{}
	if name := t["name"]; name != "" {
		p["name"] = name
	}
	if hw := t["highway"]; hw != "" {
		p["highway"] = hw
		if pathHighways[hw] {
			p[filter.FieldHighwayType] = "path"
		} else {
			p[filter.FieldHighwayType] = "road"
		}
	}
	if b := t["bicycle"]; b != "" {
		p[filter.FieldBicycle] = b
	} else if t["highway"] == "cycleway" {
		p[filter.FieldBicycle] = "designated"
	}

	for _, side := range []filter.Side{filter.Left, filter.Right} {
		key := strings.ToLower(string(side))
		if v := firstTag(t, "cycleway:"+key, "cycleway:both", "cycleway"); v != "" {
			p[side.Field()] = v
		}
		if v := firstTag(t, "cycleway:"+key+":buffer", "cycleway:both:buffer", "cycleway:buffer"); v != "" && v != "no" {
			p[side.BufferField()] = v
		}
	}
	return p
}

func routeProperties(t map[string]string) geojson.Properties {
	p := geojson.Properties{filter.FieldRoute: "bicycle"}
	for _, k := range []string{filter.FieldState, filter.FieldCycleNetwork, filter.FieldRef, "name", "network"} {
		if v := t[k]; v != "" {
			p[k] = v
		}
	}
	return p
}

func firstTag(t map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := t[k]; v != "" {
			return v
		}
	}
	return ""
}
