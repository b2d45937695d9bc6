package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/bikemap/internal/humastar"
	"github.com/joeblew999/bikemap/internal/layers"
	"github.com/joeblew999/bikemap/internal/service"
)

// RegisterFeed registers cycling feed routes.
func (h *APIHandler) RegisterFeed(api huma.API) {
	huma.Get(api, "/api/v1/feed", h.GetFeed, huma.OperationTags("feed"))
	huma.Get(api, "/api/v1/feed/data", h.GetFeedData, huma.OperationTags("feed"))
	huma.Get(api, "/api/v1/feed/files", h.GetFeedFiles, huma.OperationTags("feed"))
	huma.Get(api, "/api/v1/feed/features", h.GetFeatures, huma.OperationTags("feed"))
	huma.Post(api, "/api/v1/feed/load", h.LoadFeed, huma.OperationTags("feed"))
	huma.Post(api, "/api/v1/feed/refresh", h.RefreshFeed, huma.OperationTags("feed"))
}

type FeedQuery struct {
	Session string `query:"session" doc:"Use this session's filters instead of the defaults"`
}

type FeaturesInput struct {
	FeedQuery
	Layer  string `query:"layer" enum:"routes,lanesLeft,lanesRight,paths" default:"routes" doc:"Layer group whose filter is applied"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

// FeatureSummary is one feed feature without its coordinates.
type FeatureSummary struct {
	ID         string         `json:"id" doc:"OSM element" example:"way/123"`
	Geometry   string         `json:"geometry" doc:"Geometry type" example:"LineString"`
	Length     float64        `json:"length" doc:"Length in meters"`
	Properties map[string]any `json:"properties" doc:"Feature properties"`
}

type FeedDataOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type LoadFeedInput struct {
	Body struct {
		Name string `json:"name" doc:"Feed file in the feeds directory" example:"export.geojson"`
	}
}

func (h *APIHandler) filters(session string) (layers.Filters, error) {
	if session == "" {
		w, err := layers.New(nil)
		if err != nil {
			return layers.Filters{}, err
		}
		return w.Filters(), nil
	}
	sess, err := h.svc.Sessions.Get(session)
	if err != nil {
		return layers.Filters{}, err
	}
	return sess.State().Filters, nil
}

func (h *APIHandler) GetFeed(ctx context.Context, input *FeedQuery) (*struct{ Body service.FeedInfo }, error) {
	f, err := h.filters(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	info, err := h.svc.Feed.Info(f)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body service.FeedInfo }{Body: info}, nil
}

// GetFeedData serves the feed as the map's GeoJSON source.
func (h *APIHandler) GetFeedData(ctx context.Context, input *struct{}) (*FeedDataOutput, error) {
	fc, err := h.svc.Feed.Collection()
	if err != nil {
		return nil, statusError(err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encode feed", err)
	}
	return &FeedDataOutput{ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) GetFeedFiles(ctx context.Context, input *struct{}) (*struct{ Body []service.FeedFile }, error) {
	files, err := h.svc.Feed.List()
	if err != nil {
		return &struct{ Body []service.FeedFile }{Body: []service.FeedFile{}}, nil
	}
	return &struct{ Body []service.FeedFile }{Body: files}, nil
}

// GetFeatures pages through the features a layer group currently shows.
func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*struct {
	Body humastar.PageBody[FeatureSummary]
}, error) {
	f, err := h.filters(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	e := f.Routes
	switch input.Layer {
	case "lanesLeft":
		e = f.LanesLeft
	case "lanesRight":
		e = f.LanesRight
	case "paths":
		e = f.Paths
	}
	matched, err := h.svc.Feed.Match(e)
	if err != nil {
		return nil, statusError(err)
	}
	page := humastar.Paginate(matched, input.Offset, input.Limit)
	body := humastar.PageBody[FeatureSummary]{
		Total: page.Total, Offset: page.Offset, Limit: page.Limit,
		Data: make([]FeatureSummary, len(page.Data)),
	}
	for i, ft := range page.Data {
		body.Data[i] = summarize(ft)
	}
	return &struct {
		Body humastar.PageBody[FeatureSummary]
	}{Body: body}, nil
}

func summarize(f *geojson.Feature) FeatureSummary {
	s := FeatureSummary{ID: fmt.Sprint(f.ID), Properties: f.Properties}
	if f.Geometry != nil {
		s.Geometry = f.Geometry.GeoJSONType()
		s.Length = geo.LengthHaversine(f.Geometry)
	}
	return s
}

func (h *APIHandler) LoadFeed(ctx context.Context, input *LoadFeedInput) (*struct{ Body service.FeedInfo }, error) {
	if err := h.svc.Feed.Load(input.Body.Name); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.GetFeed(ctx, &FeedQuery{})
}

// RefreshFeed rebuilds the feed from OpenStreetMap.
func (h *APIHandler) RefreshFeed(ctx context.Context, input *struct{ Body service.RefreshOptions }) (*struct{ Body service.FeedInfo }, error) {
	if h.svc.Refresh == nil {
		return nil, huma.Error503ServiceUnavailable("refresh not configured")
	}
	logger := slog.With("c", "refresh")
	info, err := h.svc.Refresh.Refresh(ctx, input.Body, func(p int, status string) {
		logger.Info(status, "progress", p)
	})
	if err != nil {
		return nil, huma.Error502BadGateway("refresh failed: " + err.Error())
	}
	return &struct{ Body service.FeedInfo }{Body: info}, nil
}
