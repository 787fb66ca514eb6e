// Package nextbus fetches arrival predictions from the upstream
// prediction feed and normalizes them into flat transit.Prediction records.
package nextbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nextstop/nextstop/internal/resilience"
	"github.com/nextstop/nextstop/internal/transit"
)

// CollaboratorName identifies this feed in breaker registries and logs.
const CollaboratorName = "predictions"

// ClientConfig holds configuration for the prediction feed client.
type ClientConfig struct {
	// BaseURL is the feed base URL (required).
	BaseURL string

	// Location is the zone predictions are interpreted in (required).
	Location *time.Location

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches predictions for one (route, stop) pair at a time.
type Client struct {
	baseURL    string
	location   *time.Location
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a prediction feed client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(CollaboratorName))
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		location:   location,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the collaborator name.
func (c *Client) Name() string {
	return CollaboratorName
}

// GetPredictions fetches and normalizes predictions for one pair. Entries
// with a missing arrival timestamp are dropped; an absent or empty
// directions list yields an empty slice, not an error. The caller treats
// any returned error as "no predictions for this pair" so one broken pair
// never affects another.
func (c *Client) GetPredictions(ctx context.Context, key transit.RouteStopKey) ([]transit.Prediction, error) {
	url := fmt.Sprintf("%s/stop/%s/route/%s", c.baseURL, key.Stop, key.Route)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload predictionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	preds := make([]transit.Prediction, 0)
	for _, direction := range payload.Directions {
		for _, entry := range direction.Predictions {
			arrival, ok := c.toArrival(entry)
			if !ok {
				continue
			}
			preds = append(preds, transit.Prediction{
				Arrival: arrival,
				Route:   key.Route,
				Stop:    key.Stop,
			})
		}
	}

	c.logger.Debug().
		Str("route", key.Route).
		Str("stop", key.Stop).
		Int("predictions", len(preds)).
		Msg("fetched predictions")

	return preds, nil
}

// toArrival converts an epoch-millisecond timestamp to a wall-clock
// hour:minute in the configured zone.
func (c *Client) toArrival(entry predictionEntry) (transit.TimeOfDay, bool) {
	raw := string(entry.Time)
	if raw == "" || raw == "null" {
		return transit.TimeOfDay{}, false
	}
	raw = strings.Trim(raw, `"`)

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.logger.Debug().Str("time", raw).Msg("dropping unparseable prediction timestamp")
		return transit.TimeOfDay{}, false
	}

	arrival := time.UnixMilli(int64(ms)).In(c.location)
	return transit.TimeOfDayFrom(arrival), true
}

// Feed response structures.

type predictionsResponse struct {
	Directions []feedDirection `json:"directions"`
}

type feedDirection struct {
	Predictions []predictionEntry `json:"predictions"`
}

type predictionEntry struct {
	// Time is an epoch-millisecond timestamp; the feed serves it as a
	// string, but numbers appear in older payloads, so keep the raw JSON.
	Time json.RawMessage `json:"time"`
}
