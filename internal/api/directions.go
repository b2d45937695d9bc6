package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/bikemap/internal/directions"
)

// RegisterDirections registers geocoding and routing routes.
func (h *APIHandler) RegisterDirections(api huma.API) {
	huma.Get(api, "/api/v1/geocode", h.Geocode, huma.OperationTags("directions"))
	huma.Get(api, "/api/v1/reverse", h.Reverse, huma.OperationTags("directions"))
	huma.Post(api, "/api/v1/route", h.Route, huma.OperationTags("directions"))
}

type GeocodeInput struct {
	Q string `query:"q" required:"true" minLength:"1" doc:"Search text" example:"Romare Bearden Park"`
}

type ReverseInput struct {
	Lon float64 `query:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Longitude"`
	Lat float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude"`
}

type RouteInput struct {
	Body struct {
		Waypoints [][2]float64 `json:"waypoints" minItems:"2" maxItems:"25" doc:"Longitude, latitude pairs in travel order"`
	}
}

func (h *APIHandler) client() (*directions.Client, error) {
	if h.svc.Directions == nil || h.svc.Directions.Token == "" {
		return nil, statusError(directions.ErrNoToken)
	}
	return h.svc.Directions, nil
}

func (h *APIHandler) Geocode(ctx context.Context, input *GeocodeInput) (*struct{ Body []directions.Place }, error) {
	c, err := h.client()
	if err != nil {
		return nil, err
	}
	places, err := c.Geocode(ctx, input.Q)
	if err != nil {
		return nil, huma.Error502BadGateway(err.Error())
	}
	return &struct{ Body []directions.Place }{Body: places}, nil
}

func (h *APIHandler) Reverse(ctx context.Context, input *ReverseInput) (*struct{ Body []directions.Place }, error) {
	c, err := h.client()
	if err != nil {
		return nil, err
	}
	places, err := c.Reverse(ctx, orb.Point{input.Lon, input.Lat})
	if err != nil {
		return nil, huma.Error502BadGateway(err.Error())
	}
	return &struct{ Body []directions.Place }{Body: places}, nil
}

func (h *APIHandler) Route(ctx context.Context, input *RouteInput) (*struct{ Body []directions.Route }, error) {
	c, err := h.client()
	if err != nil {
		return nil, err
	}
	waypoints := make([]orb.Point, len(input.Body.Waypoints))
	for i, p := range input.Body.Waypoints {
		waypoints[i] = orb.Point(p)
	}
	routes, err := c.Route(ctx, waypoints)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body []directions.Route }{Body: routes}, nil
}
