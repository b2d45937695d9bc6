package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/bikemap/internal/db"
	"github.com/joeblew999/bikemap/internal/expr"
	"github.com/joeblew999/bikemap/internal/filter"
	"github.com/joeblew999/bikemap/internal/layers"
	"github.com/joeblew999/bikemap/internal/mapstyle"
	"github.com/joeblew999/bikemap/internal/service"
)

func newAPI(t *testing.T) (humatest.TestAPI, *Services) {
	t.Helper()
	cfg := huma.DefaultConfig("bikemap test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)

	svc := &Services{
		Sessions: service.NewSessionService(time.Minute, service.NewEventBus()),
		Feed:     service.NewFeedService(t.TempDir()),
		Style:    mapstyle.Config{DataURL: "/api/v1/feed/data"},
	}
	huma.AutoRegister(api, NewAPIHandler(svc))
	return api, svc
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func hasLink(resp http.Header, rel string) bool {
	for _, l := range resp.Values("Link") {
		if strings.Contains(l, `rel="`+rel+`"`) {
			return true
		}
	}
	return false
}

func TestHealthLinks(t *testing.T) {
	api, _ := newAPI(t)
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d", resp.Code)
	}
	if !hasLink(resp.Header(), "style") {
		t.Errorf("missing style link: %v", resp.Header().Values("Link"))
	}
}

func TestStyleBundle(t *testing.T) {
	api, _ := newAPI(t)
	resp := api.Get("/api/v1/style")
	var b struct {
		SourceID string `json:"sourceId"`
		Source   struct {
			Data string `json:"data"`
		} `json:"source"`
		Layers []struct {
			ID     string    `json:"id"`
			Filter expr.Expr `json:"filter"`
		} `json:"layers"`
	}
	decode(t, resp.Body.Bytes(), &b)
	if b.SourceID != mapstyle.SourceID || b.Source.Data != "/api/v1/feed/data" {
		t.Errorf("source: got %q %q", b.SourceID, b.Source.Data)
	}
	if len(b.Layers) != 5 {
		t.Fatalf("got %d layers", len(b.Layers))
	}
	if b.Layers[0].ID != layers.RouteLinesLayer || !expr.Equal(b.Layers[0].Filter, filter.RouteFilter(true, true, true)) {
		t.Errorf("first layer: %s %s", b.Layers[0].ID, b.Layers[0].Filter)
	}
}

func TestFiltersPreview(t *testing.T) {
	api, _ := newAPI(t)
	resp := api.Get("/api/v1/filters?signed=false&allowed=false&designated=false")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}
	var b FiltersBody
	decode(t, resp.Body.Bytes(), &b)
	if !expr.Equal(b.Filters.Routes, filter.RouteFilter(true, false, true)) {
		t.Errorf("routes: got %s", b.Filters.Routes)
	}
	if !expr.MatchesNothing(b.Filters.Paths) {
		t.Errorf("paths: got %s", b.Filters.Paths)
	}
	if b.Visibility[layers.PathsLayer] {
		t.Error("paths layer should be hidden")
	}
	if !b.Visibility[layers.RouteLinesLayer] {
		t.Error("route lines should stay visible")
	}
}

func TestSessionLifecycle(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Post("/api/v1/sessions")
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.Code, resp.Body)
	}
	if !hasLink(resp.Header(), "check-all") || !hasLink(resp.Header(), "delete") {
		t.Errorf("missing actions: %v", resp.Header().Values("Link"))
	}
	var state service.WidgetState
	decode(t, resp.Body.Bytes(), &state)
	if len(state.Nodes) != 14 {
		t.Errorf("got %d nodes", len(state.Nodes))
	}
	base := "/api/v1/sessions/" + state.Session

	resp = api.Post(base+"/nodes/"+string(layers.Lanes), map[string]any{"checked": false})
	if resp.Code != http.StatusOK {
		t.Fatalf("click: %d %s", resp.Code, resp.Body)
	}
	var res service.Result
	decode(t, resp.Body.Bytes(), &res)
	if res.State.Visibility[layers.LanesLeftLayer] || res.State.Visibility[layers.LanesRightLayer] {
		t.Error("lanes should be hidden")
	}
	for _, c := range res.Commands {
		if c.Layer != layers.LanesLeftLayer && c.Layer != layers.LanesRightLayer {
			t.Errorf("unexpected command for %s", c.Layer)
		}
	}

	if resp := api.Post(base + "/nodes/nope/toggle"); resp.Code != http.StatusNotFound {
		t.Errorf("unknown node: got %d", resp.Code)
	}

	resp = api.Get(base + "/sync")
	var cmds []service.MapCommand
	decode(t, resp.Body.Bytes(), &cmds)
	if len(cmds) == 0 {
		t.Error("sync returned nothing")
	}

	if resp := api.Delete(base); resp.Code != http.StatusOK {
		t.Errorf("delete: got %d", resp.Code)
	}
	if resp := api.Get(base); resp.Code != http.StatusNotFound {
		t.Errorf("get deleted: got %d", resp.Code)
	}
}

func feedFixture() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < 3; i++ {
		f := geojson.NewFeature(orb.LineString{{-80.84, 35.22}, {-80.83, 35.22 + float64(i)*0.01}})
		f.ID = "way/" + string(rune('1'+i))
		f.Properties = geojson.Properties{"cyclewayRight": "lane", "cyclewayLeft": "no"}
		fc.Append(f)
	}
	return fc
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	api, _ := newAPI(t)
	for _, id := range []string{"not-a-uuid", "6f1c2d3e-4a5b-4c6d-8e7f-901234567890"} {
		if resp := api.Get("/api/v1/sessions/" + id); resp.Code != http.StatusNotFound {
			t.Errorf("GET %s: got %d, want 404", id, resp.Code)
		}
		resp := api.Post("/api/v1/sessions/"+id+"/nodes/"+string(layers.Lanes), map[string]any{"checked": false})
		if resp.Code != http.StatusNotFound {
			t.Errorf("click %s: got %d, want 404", id, resp.Code)
		}
	}
}

func TestFeedFeaturesPaginate(t *testing.T) {
	api, svc := newAPI(t)
	if resp := api.Get("/api/v1/feed"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("no feed: got %d", resp.Code)
	}
	if err := svc.Feed.Save("export.geojson", feedFixture()); err != nil {
		t.Fatal(err)
	}

	resp := api.Get("/api/v1/feed/features?layer=lanesRight&limit=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}
	var page struct {
		Total int              `json:"total"`
		Data  []FeatureSummary `json:"data"`
	}
	decode(t, resp.Body.Bytes(), &page)
	if page.Total != 3 || len(page.Data) != 2 {
		t.Errorf("page: total %d, %d items", page.Total, len(page.Data))
	}
	if page.Data[0].Geometry != "LineString" || page.Data[0].Length <= 0 {
		t.Errorf("summary: %+v", page.Data[0])
	}
	if !hasLink(resp.Header(), "next") {
		t.Errorf("missing next link: %v", resp.Header().Values("Link"))
	}

	resp = api.Get("/api/v1/feed/features?layer=lanesLeft")
	decode(t, resp.Body.Bytes(), &page)
	if page.Total != 0 {
		t.Errorf("left lanes: got %d", page.Total)
	}

	resp = api.Get("/api/v1/feed/data")
	if ct := resp.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type %q", ct)
	}
}

func TestDirectionsNeedToken(t *testing.T) {
	api, _ := newAPI(t)
	if resp := api.Get("/api/v1/geocode?q=park"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d", resp.Code)
	}
}

func TestDBHandler(t *testing.T) {
	cfg := huma.DefaultConfig("bikemap test", "1.0.0")
	_, api := humatest.New(t, cfg)

	conn, err := db.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := db.LoadFeatures(t.Context(), conn, feedFixture()); err != nil {
		t.Fatal(err)
	}
	NewDBHandler(conn).RegisterRoutes(api)

	resp := api.Get("/api/v1/stats")
	var counts []db.FacilityCount
	decode(t, resp.Body.Bytes(), &counts)
	if len(counts) != 1 || counts[0].Facility != "lane:lane" || counts[0].Count != 3 {
		t.Errorf("stats: got %+v", counts)
	}

	resp = api.Post("/api/v1/query", map[string]any{"query": "DELETE FROM features"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("write query: got %d", resp.Code)
	}
	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT count(*) AS n FROM features"})
	var out struct {
		Count int `json:"count"`
	}
	decode(t, resp.Body.Bytes(), &out)
	if out.Count != 1 {
		t.Errorf("query rows: got %d", out.Count)
	}
}

func TestReadOnly(t *testing.T) {
	for _, tc := range []struct {
		q    string
		want bool
	}{
		{"select 1", true},
		{"  WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"SELECT cycleway_left FROM features OFFSET 2", true},
		{"SELECT 1;", true},
		{"SELECT 1; DROP TABLE features", false},
		{"INSERT INTO features VALUES (1)", false},
		{"WITH x AS (SELECT 1) INSERT INTO features SELECT * FROM x", false},
		{"with d AS (DELETE FROM features RETURNING *) SELECT 1", false},
		{"COPY features TO 'out.csv'", false},
		{"", false},
	} {
		if got := readOnly(tc.q); got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.q, got, tc.want)
		}
	}
}
