// Package overpass fetches cycling infrastructure from the Overpass API and
// converts it to the GeoJSON feed the map draws.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultURL is the public Overpass interpreter.
	DefaultURL = "https://overpass-api.de/api/interpreter"

	// CharlotteArea is the Overpass area id of Charlotte, NC.
	CharlotteArea int64 = 3600177415

	userAgent = "bikemap/1.0"
)

// Query returns the Overpass QL selecting cycleways, ways with any
// cycleway:* tag and bicycle route relations inside areaID, with the nodes
// and member ways needed to build their geometry.
func Query(areaID int64) string {
	return fmt.Sprintf(`[out:json][timeout:25];
area(id:%d)->.searchArea;
(
  way[~"^cycleway(:.*)?$"~"."](area.searchArea);
  way["highway"="cycleway"](area.searchArea);
  relation["route"="bicycle"](area.searchArea);
);
out body;
>;
out skel qt;`, areaID)
}

// Client talks to an Overpass interpreter.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a client for DefaultURL. The timeout leaves room for
// the query's own 25s server timeout.
func NewClient() *Client {
	return &Client{
		URL:  DefaultURL,
		HTTP: &http.Client{Timeout: 35 * time.Second},
	}
}

// Fetch runs query and returns the raw JSON response.
func (c *Client) Fetch(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read overpass response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
