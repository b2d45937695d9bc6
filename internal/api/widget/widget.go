// Package widget contains the Datastar SSE handlers behind the layer panel.
package widget

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/humastar"
	"github.com/joeblew999/bikemap/internal/mapstyle"
	"github.com/joeblew999/bikemap/internal/service"
	"github.com/joeblew999/bikemap/internal/templates"
)

// MapCommandEvent is the browser event carrying one map call.
const MapCommandEvent = "map-command"

// keepAlive is how often an open event stream refreshes its session.
var keepAlive = time.Minute

// Handler serves the checkbox panel of one page.
type Handler struct {
	humastar.Handler
	sessions *service.SessionService
	bus      *service.EventBus
	feed     *service.FeedService
	swatches map[string]string
}

// New creates the panel handlers. feed may be nil.
func New(sessions *service.SessionService, bus *service.EventBus, feed *service.FeedService, renderer *templates.Renderer) *Handler {
	swatches := make(map[string]string)
	for _, item := range mapstyle.Legend(mapstyle.DefaultPalette()) {
		swatches[item.ID] = item.Color
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		bus:      bus,
		feed:     feed,
		swatches: swatches,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/widget/{session}/tree", h.Tree, huma.OperationTags("widget"))
	huma.Post(api, "/api/v1/widget/{session}/toggle/{id}", h.Toggle, huma.OperationTags("widget"))
	huma.Post(api, "/api/v1/widget/{session}/all", h.SetAll, huma.OperationTags("widget"))
	huma.Get(api, "/api/v1/widget/{session}/feed", h.Feed, huma.OperationTags("widget"))
	huma.Get(api, "/api/v1/widget/{session}/events", h.Events, huma.OperationTags("widget"))
}

type SessionInput struct {
	Session string `path:"session" doc:"Session ID"`
}

type ToggleInput struct {
	Session string `path:"session" doc:"Session ID"`
	ID      string `path:"id" doc:"Checkbox ID" example:"signed-routes"`
}

type SetAllInput struct {
	Session string `path:"session" doc:"Session ID"`
	RawBody []byte
}

// Tree renders the checkbox tree.
func (h *Handler) Tree(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderTree(sess.State()), "#layer-tree")
	}), nil
}

// Toggle applies a click on a checkbox. Map calls reach the page through
// its event stream.
func (h *Handler) Toggle(ctx context.Context, input *ToggleInput) (*huma.StreamResponse, error) {
	res, err := h.sessions.Toggle(input.Session, checkbox.ID(input.ID))
	if err != nil {
		return nil, statusError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderTree(res.State), "#layer-tree")
	}), nil
}

// SetAll checks or clears every facility from the "checked" signal.
func (h *Handler) SetAll(ctx context.Context, input *SetAllInput) (*huma.StreamResponse, error) {
	signals, err := (&humastar.SignalsInput{RawBody: input.RawBody}).Parse()
	if err != nil {
		return nil, err
	}
	res, err := h.sessions.SetAll(input.Session, signals.Bool("checked"))
	if err != nil {
		return nil, statusError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderTree(res.State), "#layer-tree")
	}), nil
}

// Feed renders what the current filters keep of the loaded feed.
func (h *Handler) Feed(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		if h.feed == nil {
			sse.Patch(h.Render("empty-state", "No feed loaded"), "#feed-info")
			return
		}
		info, err := h.feed.Info(sess.State().Filters)
		if err != nil {
			sse.Patch(h.Render("empty-state", err.Error()), "#feed-info")
			return
		}
		sse.Patch(h.Render("feed-info", info), "#feed-info")
	}), nil
}

// Events replays the session's map state, then streams every change as
// map commands plus a fresh tree.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.Session)
	if err != nil {
		return nil, statusError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe(sess.ID)
		defer h.bus.Unsubscribe(ch)
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		humastar.Dispatch(sse, MapCommandEvent, sess.Sync())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := h.sessions.Get(sess.ID); err != nil {
					return
				}
			case ev := <-ch:
				switch ev.Action {
				case "changed":
					humastar.Dispatch(sse, MapCommandEvent, ev.Commands)
					sse.Patch(h.renderTree(sess.State()), "#layer-tree")
				case "deleted", "expired":
					sse.Patch(h.Render("empty-state", "Session ended, reload the page"), "#layer-tree")
					return
				}
			}
		}
	}), nil
}

func (h *Handler) renderTree(state service.WidgetState) string {
	var buf bytes.Buffer
	if err := h.Renderer.RenderToBuffer(&buf, "layer-tree", map[string]any{
		"State": state, "Swatches": h.swatches,
	}); err != nil {
		return ""
	}
	return buf.String()
}

func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, checkbox.ErrUnknownID):
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
