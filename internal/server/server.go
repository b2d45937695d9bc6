package server

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/bikemap/internal/api"
	"github.com/joeblew999/bikemap/internal/api/widget"
	"github.com/joeblew999/bikemap/internal/db"
	"github.com/joeblew999/bikemap/internal/directions"
	"github.com/joeblew999/bikemap/internal/mapstyle"
	"github.com/joeblew999/bikemap/internal/overpass"
	"github.com/joeblew999/bikemap/internal/service"
	"github.com/joeblew999/bikemap/internal/templates"
)

// DefaultStyleURL is the base map under the cycling layers.
const DefaultStyleURL = "mapbox://styles/mapbox/light-v11"

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	Feed        string // feed file in DataDir/feeds loaded at startup
	DataURL     string // GeoJSON URL the browser loads; defaults to the feed endpoint
	MapboxToken string
	StyleURL    string
	SessionTTL  time.Duration
	TemplateDir string // reload templates from here on every page view
}

// Server is the bikemap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
	renderer *templates.Renderer
	logger   *slog.Logger
}

// New creates a new bikemap server.
func New(cfg Config) *Server {
	if cfg.DataURL == "" {
		cfg.DataURL = "/api/v1/feed/data"
	}
	if cfg.StyleURL == "" {
		cfg.StyleURL = DefaultStyleURL
	}
	logger := slog.With("c", "server")
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("bikemap API", "1.0.0")
	humaConfig.Info.Description = "Charlotte bicycle facility map: layer widget sessions, map filters, cycling feed and directions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	feed := service.NewFeedService(cfg.DataDir)
	services := &api.Services{
		Sessions:   service.NewSessionService(cfg.SessionTTL, bus),
		Feed:       feed,
		Refresh:    service.NewRefreshService(feed, overpass.NewClient()),
		Directions: directions.New(cfg.MapboxToken),
		Style: mapstyle.Config{
			Token:    cfg.MapboxToken,
			StyleURL: cfg.StyleURL,
			DataURL:  cfg.DataURL,
		},
	}

	renderer, err := templates.Default()
	if err != nil {
		logger.Error("parse templates", "err", err)
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		bus:      bus,
		services: services,
		renderer: renderer,
		logger:   logger,
	}

	// Initialize DuckDB connection
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "bikemap",
	})
	if err == nil {
		s.db = conn
		feed.OnLoad(s.index)
	} else {
		logger.Warn("duckdb unavailable", "err", err)
	}

	if cfg.Feed != "" {
		if err := feed.Load(cfg.Feed); err != nil {
			logger.Warn("no feed loaded", "feed", cfg.Feed, "err", err)
		}
	}

	s.routes()
	return s
}

// index mirrors a freshly loaded feed into DuckDB.
func (s *Server) index(fc *geojson.FeatureCollection) {
	n, err := db.LoadFeatures(context.Background(), s.db, fc)
	if err != nil {
		s.logger.Error("index feed", "err", err)
		return
	}
	s.logger.Info("feed indexed", "features", n)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start runs background work until Close.
func (s *Server) Start() {
	go s.services.Sessions.Start()
}

// Close closes server resources.
func (s *Server) Close() error {
	s.services.Sessions.Stop()
	return db.Close()
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.services.Sessions).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Register widget SSE routes using Huma + Datastar SDK
	if s.renderer != nil {
		widget.New(s.services.Sessions, s.bus, s.services.Feed, s.renderer).RegisterRoutes(s.humaAPI)
	}

	// Page routes
	s.mux.HandleFunc("GET /{$}", s.handlePage)
}

// handlePage starts a widget session and serves the map page bound to it.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	if s.config.TemplateDir != "" {
		if err := s.renderer.Reload(os.DirFS(s.config.TemplateDir)); err != nil {
			s.logger.Warn("reload templates", "err", err)
		}
	}
	sess, err := s.services.Sessions.Create()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.RenderToBuffer(&buf, "index", map[string]any{
		"Title":   "Charlotte Bike Map",
		"Session": sess.ID,
	}); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
