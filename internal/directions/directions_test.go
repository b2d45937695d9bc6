package directions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
)

const geocodeBody = `{"type":"FeatureCollection","features":[
  {"place_name":"Romare Bearden Park, Charlotte","center":[-80.8486,35.2247],"relevance":0.98,"place_type":["poi"]},
  {"place_name":"broken","center":[1],"relevance":0.1,"place_type":["poi"]}
]}`

const routeBody = `{"code":"Ok","routes":[{
  "distance":1234.5,"duration":300,
  "geometry":{"type":"LineString","coordinates":[[-80.84,35.22],[-80.83,35.23],[-80.82,35.24]]},
  "legs":[{"steps":[
    {"distance":600,"duration":150,"name":"S Tryon St","maneuver":{"instruction":"Head north on S Tryon St"}},
    {"distance":634.5,"duration":150,"name":"","maneuver":{"instruction":"You have arrived"}}
  ]}]
}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("missing token in %s", r.URL)
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c := New("tok")
	c.BaseURL = srv.URL
	return c, &calls
}

func TestGeocode(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/geocoding/v5/mapbox.places/") {
			t.Errorf("path: got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("types") != "place,neighborhood,address,poi" {
			t.Errorf("types: got %q", q.Get("types"))
		}
		if q.Get("bbox") != "-81.06355,35.00332,-80.52998,35.41154" {
			t.Errorf("bbox: got %q", q.Get("bbox"))
		}
		w.Write([]byte(geocodeBody))
	})

	places, err := c.Geocode(context.Background(), "romare bearden")
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 1 {
		t.Fatalf("got %d places, want 1", len(places))
	}
	if places[0].Center != (orb.Point{-80.8486, 35.2247}) {
		t.Errorf("center: got %v", places[0].Center)
	}

	// Second identical lookup is served from the cache.
	if _, err := c.Geocode(context.Background(), "romare bearden"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestReversePathUsesLonLat(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/-80.84,35.22.json") {
			t.Errorf("path: got %s", r.URL.Path)
		}
		w.Write([]byte(geocodeBody))
	})
	if _, err := c.Reverse(context.Background(), orb.Point{-80.84, 35.22}); err != nil {
		t.Fatal(err)
	}
}

func TestRoute(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/directions/v5/mapbox/cycling/-80.84,35.22;-80.82,35.24" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		q := r.URL.Query()
		for k, v := range map[string]string{"steps": "true", "geometries": "geojson", "alternatives": "true", "overview": "full"} {
			if q.Get(k) != v {
				t.Errorf("%s: got %q, want %q", k, q.Get(k), v)
			}
		}
		w.Write([]byte(routeBody))
	})

	routes, err := c.Route(context.Background(), []orb.Point{{-80.84, 35.22}, {-80.82, 35.24}})
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 {
		t.Fatalf("got %d routes", len(routes))
	}
	r := routes[0]
	if len(r.Geometry) != 3 || r.Distance != 1234.5 {
		t.Errorf("route: got %d points, %v m", len(r.Geometry), r.Distance)
	}
	if len(r.Steps) != 2 || r.Steps[0].Instruction != "Head north on S Tryon St" {
		t.Errorf("steps: got %+v", r.Steps)
	}
}

func TestRouteNoRoute(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","message":"No route found","routes":[]}`))
	})
	_, err := c.Route(context.Background(), []orb.Point{{0, 0}, {1, 1}})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestErrors(t *testing.T) {
	if _, err := New("").Geocode(context.Background(), "x"); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
	if _, err := New("tok").Route(context.Background(), []orb.Point{{0, 0}}); err == nil {
		t.Error("expected error for a single waypoint")
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Authorized"}`, http.StatusUnauthorized)
	})
	if _, err := c.Geocode(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 error, got %v", err)
	}
}
