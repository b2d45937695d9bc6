// Package directions wraps the Mapbox geocoding and cycling directions
// APIs used by the route planner.
package directions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jellydator/ttlcache/v3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"

	// Types requested from the geocoder.
	placeTypes = "place,neighborhood,address,poi"

	cacheTTL = 10 * time.Minute
)

// Bound limits geocoder results to the Charlotte area.
var Bound = orb.Bound{Min: orb.Point{-81.06355, 35.00332}, Max: orb.Point{-80.52998, 35.41154}}

var (
	ErrNoToken = errors.New("mapbox token not configured")
	ErrNoRoute = errors.New("no route found")
)

// Place is a geocoder result.
type Place struct {
	Name      string    `json:"name" doc:"Full place name" example:"Romare Bearden Park, Charlotte, North Carolina"`
	Center    orb.Point `json:"center" doc:"Longitude, latitude"`
	Relevance float64   `json:"relevance" doc:"Match relevance (0-1)"`
	Types     []string  `json:"types" doc:"Place types"`
}

// Route is one cycling route between waypoints.
type Route struct {
	Distance float64          `json:"distance" doc:"Length in meters"`
	Duration float64          `json:"duration" doc:"Travel time in seconds"`
	Geometry orb.LineString   `json:"-"`
	Feature  *geojson.Feature `json:"feature" doc:"Route geometry as a GeoJSON feature"`
	Steps    []Step           `json:"steps" doc:"Turn-by-turn instructions"`
}

// Step is one maneuver.
type Step struct {
	Instruction string  `json:"instruction"`
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Name        string  `json:"name,omitempty"`
}

// Client calls the Mapbox APIs. Successful responses are cached by URL.
type Client struct {
	Token   string
	BaseURL string
	HTTP    *http.Client

	cache *ttlcache.Cache[string, []byte]
}

// New returns a client for token.
func New(token string) *Client {
	return &Client{
		Token:   token,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		cache:   ttlcache.New[string, []byte](ttlcache.WithTTL[string, []byte](cacheTTL)),
	}
}

// Geocode searches for places matching query inside Bound.
func (c *Client) Geocode(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	return c.places(ctx, url.PathEscape(query))
}

// Reverse returns the places at p, nearest first.
func (c *Client) Reverse(ctx context.Context, p orb.Point) ([]Place, error) {
	return c.places(ctx, coord(p))
}

func (c *Client) places(ctx context.Context, search string) ([]Place, error) {
	params := url.Values{
		"types": {placeTypes},
		"bbox":  {bbox(Bound)},
	}
	data, err := c.get(ctx, "/geocoding/v5/mapbox.places/"+search+".json", params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Features []struct {
			PlaceName string    `json:"place_name"`
			Center    []float64 `json:"center"`
			Relevance float64   `json:"relevance"`
			PlaceType []string  `json:"place_type"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	places := make([]Place, 0, len(res.Features))
	for _, f := range res.Features {
		if len(f.Center) != 2 {
			continue
		}
		places = append(places, Place{
			Name:      f.PlaceName,
			Center:    orb.Point{f.Center[0], f.Center[1]},
			Relevance: f.Relevance,
			Types:     f.PlaceType,
		})
	}
	return places, nil
}

// Route returns cycling routes through waypoints, best first.
func (c *Client) Route(ctx context.Context, waypoints []orb.Point) ([]Route, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}
	coords := make([]string, len(waypoints))
	for i, p := range waypoints {
		coords[i] = coord(p)
	}
	params := url.Values{
		"steps":        {"true"},
		"overview":     {"full"},
		"geometries":   {"geojson"},
		"alternatives": {"true"},
	}
	data, err := c.get(ctx, "/directions/v5/mapbox/cycling/"+strings.Join(coords, ";"), params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Routes  []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Legs []struct {
				Steps []struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
					Name     string  `json:"name"`
					Maneuver struct {
						Instruction string `json:"instruction"`
					} `json:"maneuver"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}
	if res.Code != "" && res.Code != "Ok" {
		return nil, fmt.Errorf("%w: %s %s", ErrNoRoute, res.Code, res.Message)
	}
	if len(res.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, 0, len(res.Routes))
	for _, r := range res.Routes {
		ls := make(orb.LineString, 0, len(r.Geometry.Coordinates))
		for _, c := range r.Geometry.Coordinates {
			if len(c) >= 2 {
				ls = append(ls, orb.Point{c[0], c[1]})
			}
		}
		route := Route{Distance: r.Distance, Duration: r.Duration, Geometry: ls, Feature: geojson.NewFeature(ls)}
		for _, leg := range r.Legs {
			for _, s := range leg.Steps {
				route.Steps = append(route.Steps, Step{
					Instruction: s.Maneuver.Instruction,
					Distance:    s.Distance,
					Duration:    s.Duration,
					Name:        s.Name,
				})
			}
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.Token == "" {
		return nil, ErrNoToken
	}
	// The cache key leaves out the token.
	key := path + "?" + params.Encode()
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	params.Set("access_token", c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mapbox API error (%d): %s", resp.StatusCode, string(data))
	}
	c.cache.Set(key, data, ttlcache.DefaultTTL)
	return data, nil
}

func coord(p orb.Point) string {
	return strconv.FormatFloat(p.Lon(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat(), 'f', -1, 64)
}

func bbox(b orb.Bound) string {
	return coord(b.Min) + "," + coord(b.Max)
}
