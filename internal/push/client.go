// Package push is the client for the subscription/push registry: it lists
// registered tags, creates audience tags, and dispatches notifications.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nextstop/nextstop/internal/resilience"
)

// CollaboratorName identifies the registry in breaker registries and logs.
const CollaboratorName = "push"

// ClientConfig holds configuration for the push registry client.
type ClientConfig struct {
	// BaseURL is the registry base URL (required).
	BaseURL string

	// Username and Password are the Basic-Auth credentials, passed
	// through from the environment.
	Username string
	Password string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the push registry.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a push registry client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(CollaboratorName))
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the collaborator name.
func (c *Client) Name() string {
	return CollaboratorName
}

// ListTags returns every tag currently registered, subscriptions and
// audience labels alike.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	url := c.baseURL + "/v1/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return payload.Tags, nil
}

// CreateTag creates an audience tag. Creation is idempotent: a conflict
// response means the tag already exists and is not an error.
func (c *Client) CreateTag(ctx context.Context, name string) error {
	url := c.baseURL + "/v1/tags/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// Push dispatches one notification body to the given audience tags.
func (c *Client) Push(ctx context.Context, body string, tags []string) error {
	url := c.baseURL + "/v1/push"

	payload := pushRequest{
		Message: pushMessage{
			Body:   body,
			Custom: map[string]any{},
		},
		Target: pushTarget{Tags: tags},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	c.logger.Debug().
		Strs("tags", tags).
		Int("status", resp.StatusCode).
		Msg("notification dispatched")

	return nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
}

// Registry request/response structures.

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type pushRequest struct {
	Message pushMessage `json:"message"`
	Target  pushTarget  `json:"target"`
}

type pushMessage struct {
	Body   string         `json:"body"`
	Custom map[string]any `json:"custom"`
}

type pushTarget struct {
	Tags []string `json:"tags"`
}
