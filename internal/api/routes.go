// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/directions"
	"github.com/joeblew999/bikemap/internal/humastar"
	"github.com/joeblew999/bikemap/internal/layers"
	"github.com/joeblew999/bikemap/internal/mapstyle"
	"github.com/joeblew999/bikemap/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Sessions   *service.SessionService
	Feed       *service.FeedService
	Refresh    *service.RefreshService
	Directions *directions.Client
	Style      mapstyle.Config
}

// Types

type SessionInput struct {
	Session string `path:"session" doc:"Session ID"`
}

type NodeInput struct {
	Session string `path:"session" doc:"Session ID"`
	ID      string `path:"id" doc:"Checkbox ID" example:"signed-routes"`
}

type CheckedBody struct {
	Checked bool `json:"checked" doc:"New checked state"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// SessionBody is a session's widget state with the actions it offers.
type SessionBody struct {
	service.WidgetState
}

var sessionActions = []humastar.ActionDef{
	{Rel: "check-all", Pattern: "/api/v1/sessions/%s/all", Method: "POST", Title: "Show every facility"},
	{Rel: "sync", Pattern: "/api/v1/sessions/%s/sync", Method: "GET", Title: "Replay map state"},
	{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: "DELETE", Title: "End session"},
}

func (b SessionBody) Actions() []humastar.Action {
	out := make([]humastar.Action, len(sessionActions))
	for i, d := range sessionActions {
		out[i] = d.For(b.Session)
	}
	return out
}

// FiltersInput selects leaf facilities by query flag.
type FiltersInput struct {
	Greenway    bool `query:"greenway" default:"true" doc:"Show greenway routes"`
	Signed      bool `query:"signed" default:"true" doc:"Show signed routes"`
	Suggested   bool `query:"suggested" default:"true" doc:"Show suggested routes"`
	Cycletrack  bool `query:"cycletrack" default:"true" doc:"Show cycle tracks"`
	Buffered    bool `query:"buffered" default:"true" doc:"Show buffered lanes"`
	Standard    bool `query:"standard" default:"true" doc:"Show standard lanes"`
	ShareBusway bool `query:"shareBusway" default:"true" doc:"Show shared bus lanes"`
	Shoulder    bool `query:"shoulder" default:"true" doc:"Show shoulders"`
	Allowed     bool `query:"allowed" default:"true" doc:"Show paths where bicycles are allowed"`
	Designated  bool `query:"designated" default:"true" doc:"Show designated cycle paths"`
}

// Leaves returns the flags keyed by checkbox ID.
func (in *FiltersInput) Leaves() map[checkbox.ID]bool {
	return map[checkbox.ID]bool{
		layers.GreenwayRoutes:   in.Greenway,
		layers.SignedRoutes:     in.Signed,
		layers.SuggestedRoutes:  in.Suggested,
		layers.CycletrackLanes:  in.Cycletrack,
		layers.BufferedLanes:    in.Buffered,
		layers.StandardLanes:    in.Standard,
		layers.ShareBuswayLanes: in.ShareBusway,
		layers.ShoulderLanes:    in.Shoulder,
		layers.AllowedPaths:     in.Allowed,
		layers.DesignatedPaths:  in.Designated,
	}
}

type FiltersBody struct {
	Filters    layers.Filters  `json:"filters" doc:"Filter per layer group"`
	Visibility map[string]bool `json:"visibility" doc:"Visibility per map layer"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterStyle registers map style routes.
func (h *APIHandler) RegisterStyle(api huma.API) {
	huma.Get(api, "/api/v1/style", h.GetStyle, huma.OperationTags("style"))
	huma.Get(api, "/api/v1/filters", h.GetFilters, huma.OperationTags("style"))
}

// RegisterSessions registers layer widget session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        "POST",
		Path:          "/api/v1/sessions",
		DefaultStatus: 201,
		Tags:          []string{"sessions"},
	}, h.CreateSession)
	huma.Get(api, "/api/v1/sessions/{session}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{session}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{session}/sync", h.SyncSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{session}/all", h.SetAll, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{session}/nodes/{id}", h.ClickNode, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{session}/nodes/{id}/toggle", h.ToggleNode, huma.OperationTags("sessions"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *struct{}) (*struct{ Body mapstyle.Bundle }, error) {
	return &struct{ Body mapstyle.Bundle }{Body: mapstyle.Style(h.svc.Style)}, nil
}

// GetFilters computes the filters for a set of leaf toggles without a
// session.
func (h *APIHandler) GetFilters(ctx context.Context, input *FiltersInput) (*struct{ Body FiltersBody }, error) {
	w, err := layers.New(nil)
	if err != nil {
		return nil, huma.Error500InternalServerError("build widget", err)
	}
	for id, checked := range input.Leaves() {
		if !checked {
			w.Click(id, false)
		}
	}
	return &struct{ Body FiltersBody }{Body: FiltersBody{
		Filters: w.Filters(), Visibility: w.Visibility(),
	}}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{}) (*struct{ Body SessionBody }, error) {
	sess, err := h.svc.Sessions.Create()
	if err != nil {
		return nil, huma.Error500InternalServerError("create session", err)
	}
	return &struct{ Body SessionBody }{Body: SessionBody{sess.State()}}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*struct{ Body SessionBody }, error) {
	sess, err := h.svc.Sessions.Get(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body SessionBody }{Body: SessionBody{sess.State()}}, nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Sessions.Delete(input.Session); err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session deleted"}}, nil
}

func (h *APIHandler) SyncSession(ctx context.Context, input *SessionInput) (*struct{ Body []service.MapCommand }, error) {
	sess, err := h.svc.Sessions.Get(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body []service.MapCommand }{Body: sess.Sync()}, nil
}

func (h *APIHandler) SetAll(ctx context.Context, input *struct {
	SessionInput
	Body CheckedBody
}) (*struct{ Body service.Result }, error) {
	res, err := h.svc.Sessions.SetAll(input.Session, input.Body.Checked)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body service.Result }{Body: res}, nil
}

func (h *APIHandler) ClickNode(ctx context.Context, input *struct {
	NodeInput
	Body CheckedBody
}) (*struct{ Body service.Result }, error) {
	res, err := h.svc.Sessions.Click(input.Session, checkbox.ID(input.ID), input.Body.Checked)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body service.Result }{Body: res}, nil
}

func (h *APIHandler) ToggleNode(ctx context.Context, input *NodeInput) (*struct{ Body service.Result }, error) {
	res, err := h.svc.Sessions.Toggle(input.Session, checkbox.ID(input.ID))
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body service.Result }{Body: res}, nil
}

// statusError maps service errors onto HTTP problems.
func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, checkbox.ErrUnknownID),
		errors.Is(err, directions.ErrNoRoute):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrNoFeed),
		errors.Is(err, directions.ErrNoToken):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
