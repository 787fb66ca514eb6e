// Package config provides the notifier's configuration, loaded once from
// environment variables at process start and passed into each component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every recognized environment option.
type Config struct {
	// Push registry
	PushURL      string
	PushUsername string
	PushPassword string

	// Upstream feeds
	PredictionsURL   string
	ServiceAlertsURL string

	// PollInterval is the time between cycles.
	PollInterval time.Duration

	// PollWindow is recognized for compatibility with existing
	// deployments but not consumed by the matching logic.
	PollWindow int

	// Location is the zone all wall-clock times are interpreted in.
	Location *time.Location

	// BroadcastTag is the shared audience tag for service alerts.
	BroadcastTag string

	// OpsPort serves the health/status endpoints.
	OpsPort string
}

// Load reads configuration from environment variables. The collaborator
// URLs and push credentials have no sensible defaults and must be set.
func Load() (*Config, error) {
	pushURL := os.Getenv("PUSH_URL")
	if pushURL == "" {
		return nil, fmt.Errorf("PUSH_URL must be set")
	}

	pushUsername := os.Getenv("PUSH_USERNAME")
	pushPassword := os.Getenv("PUSH_PASSWORD")
	if pushUsername == "" || pushPassword == "" {
		return nil, fmt.Errorf("PUSH_USERNAME and PUSH_PASSWORD must be set")
	}

	predictionsURL := os.Getenv("PREDICTIONS_URL")
	if predictionsURL == "" {
		return nil, fmt.Errorf("PREDICTIONS_URL must be set")
	}

	alertsURL := os.Getenv("SERVICE_ALERTS_URL")
	if alertsURL == "" {
		return nil, fmt.Errorf("SERVICE_ALERTS_URL must be set")
	}

	zoneName := envOr("DEFAULT_TIME_ZONE", "UTC")
	location, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TIME_ZONE %q: %w", zoneName, err)
	}

	return &Config{
		PushURL:          pushURL,
		PushUsername:     pushUsername,
		PushPassword:     pushPassword,
		PredictionsURL:   predictionsURL,
		ServiceAlertsURL: alertsURL,
		PollInterval:     time.Duration(envInt("POLL_INTERVAL", 1)) * time.Minute,
		PollWindow:       envInt("POLL_WINDOW", 0),
		Location:         location,
		BroadcastTag:     envOr("BROADCAST_TAG", "service_alerts"),
		OpsPort:          envOr("APP_PORT", "8080"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
