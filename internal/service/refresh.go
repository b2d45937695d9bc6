package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joeblew999/bikemap/internal/overpass"
)

// Fetcher runs an Overpass query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]byte, error)
}

// RefreshOptions selects what to fetch and where to store it.
type RefreshOptions struct {
	AreaID int64  `json:"areaId,omitempty" doc:"Overpass area id" example:"3600177415"`
	Output string `json:"output,omitempty" doc:"Feed file name to write" example:"export.geojson"`
}

// ProgressFunc is called with progress updates during a refresh.
type ProgressFunc func(progress int, status string)

// RefreshService rebuilds the cycling feed from OpenStreetMap.
type RefreshService struct {
	feeds   *FeedService
	fetcher Fetcher
}

// NewRefreshService creates a refresh service writing into feeds.
func NewRefreshService(feeds *FeedService, fetcher Fetcher) *RefreshService {
	return &RefreshService{feeds: feeds, fetcher: fetcher}
}

// Refresh fetches, converts and saves the feed, then makes it current.
func (s *RefreshService) Refresh(ctx context.Context, opts RefreshOptions, onProgress ProgressFunc) (FeedInfo, error) {
	if opts.AreaID == 0 {
		opts.AreaID = overpass.CharlotteArea
	}
	if opts.Output == "" {
		opts.Output = "export.geojson"
	}
	if !strings.HasSuffix(opts.Output, ".geojson") {
		opts.Output += ".geojson"
	}
	progress := func(p int, status string) {
		if onProgress != nil {
			onProgress(p, status)
		}
	}

	progress(10, "Querying Overpass...")
	data, err := s.fetcher.Fetch(ctx, overpass.Query(opts.AreaID))
	if err != nil {
		return FeedInfo{}, err
	}

	progress(60, fmt.Sprintf("Converting %s of OSM data...", humanize.Bytes(uint64(len(data)))))
	fc, err := overpass.Convert(data)
	if err != nil {
		return FeedInfo{}, err
	}

	progress(90, fmt.Sprintf("Saving %d features...", len(fc.Features)))
	if err := s.feeds.Save(opts.Output, fc); err != nil {
		return FeedInfo{}, fmt.Errorf("save feed: %w", err)
	}

	progress(100, "Feed refreshed")
	s.feeds.mu.RLock()
	defer s.feeds.mu.RUnlock()
	return FeedInfo{
		Name:     s.feeds.name,
		Size:     humanize.Bytes(uint64(s.feeds.size)),
		Features: len(fc.Features),
	}, nil
}
