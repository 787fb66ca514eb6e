// Package alerts fetches system-wide service alerts for rebroadcast.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nextstop/nextstop/internal/resilience"
)

// CollaboratorName identifies the feed in breaker registries and logs.
const CollaboratorName = "alerts"

// ClientConfig holds configuration for the service alerts client.
type ClientConfig struct {
	// URL is the full alerts feed URL (required).
	URL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches the service alerts feed.
type Client struct {
	url        string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a service alerts client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(CollaboratorName))
	}

	return &Client{
		url:        cfg.URL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the collaborator name.
func (c *Client) Name() string {
	return CollaboratorName
}

// GetAlerts returns the raw description of every alert currently on the
// feed. Alerts with a null or empty description are dropped.
func (c *Client) GetAlerts(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
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

	var payload alertsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	descriptions := make([]string, 0, len(payload.Alerts))
	for _, alert := range payload.Alerts {
		if alert.Description == nil || *alert.Description == "" {
			continue
		}
		descriptions = append(descriptions, *alert.Description)
	}

	c.logger.Debug().Int("alerts", len(descriptions)).Msg("fetched service alerts")

	return descriptions, nil
}

// Feed response structures.

type alertsResponse struct {
	Alerts []alertEntry `json:"alerts"`
}

type alertEntry struct {
	Description *string `json:"description"`
}
