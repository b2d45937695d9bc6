package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/bikemap/internal/expr"
	"github.com/joeblew999/bikemap/internal/layers"
)

// ErrNoFeed is returned when no feed has been loaded.
var ErrNoFeed = errors.New("no feed loaded")

// FeedFile is a GeoJSON feed in the data directory.
type FeedFile struct {
	Name string `json:"name" doc:"File name" example:"export.geojson"`
	Size string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
}

// FeedService holds the cycling feed served to the map.
type FeedService struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	name   string
	size   int64
	fc     *geojson.FeatureCollection
	onLoad []func(*geojson.FeatureCollection)
}

// NewFeedService creates a feed service reading from dataDir/feeds.
func NewFeedService(dataDir string) *FeedService {
	return &FeedService{
		dir:    filepath.Join(dataDir, "feeds"),
		logger: slog.With("c", "feed"),
	}
}

// Dir returns the feeds directory.
func (s *FeedService) Dir() string { return s.dir }

// List returns the GeoJSON files in the feeds directory.
func (s *FeedService) List() ([]FeedFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FeedFile{}, nil
		}
		return nil, err
	}

	files := []FeedFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".geojson", ".json":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FeedFile{
			Name: entry.Name(),
			Size: humanize.Bytes(uint64(info.Size())),
		})
	}
	return files, nil
}

// OnLoad registers fn to run after every successful load.
func (s *FeedService) OnLoad(fn func(*geojson.FeatureCollection)) {
	s.mu.Lock()
	s.onLoad = append(s.onLoad, fn)
	s.mu.Unlock()
}

// Load reads name from the feeds directory and makes it current.
func (s *FeedService) Load(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	return s.LoadBytes(name, data)
}

// LoadBytes parses a GeoJSON feature collection and makes it current.
func (s *FeedService) LoadBytes(name string, data []byte) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parse feed %s: %w", name, err)
	}
	s.mu.Lock()
	s.name, s.size, s.fc = name, int64(len(data)), fc
	hooks := s.onLoad
	s.mu.Unlock()
	s.logger.Info("feed loaded", "name", name, "features", len(fc.Features), "size", humanize.Bytes(uint64(len(data))))
	for _, fn := range hooks {
		fn(fc)
	}
	return nil
}

// Save writes fc to the feeds directory as name and makes it current.
func (s *FeedService) Save(name string, fc *geojson.FeatureCollection) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	return s.LoadBytes(name, data)
}

// Collection returns the current feed.
func (s *FeedService) Collection() (*geojson.FeatureCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fc == nil {
		return nil, ErrNoFeed
	}
	return s.fc, nil
}

// Match returns the features of the current feed accepted by e.
func (s *FeedService) Match(e expr.Expr) ([]*geojson.Feature, error) {
	fc, err := s.Collection()
	if err != nil {
		return nil, err
	}
	return e.MatchFeatures(fc), nil
}

// Info describes the current feed and counts what each filter keeps.
func (s *FeedService) Info(f layers.Filters) (FeedInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fc == nil {
		return FeedInfo{}, ErrNoFeed
	}
	count := func(e expr.Expr) int { return len(e.MatchFeatures(s.fc)) }
	return FeedInfo{
		Name:     s.name,
		Size:     humanize.Bytes(uint64(s.size)),
		Features: len(s.fc.Features),
		Counts: map[string]int{
			"routes":     count(f.Routes),
			"lanesLeft":  count(f.LanesLeft),
			"lanesRight": count(f.LanesRight),
			"paths":      count(f.Paths),
		},
	}, nil
}

// path resolves a bare file name inside the feeds directory.
func (s *FeedService) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid feed name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
