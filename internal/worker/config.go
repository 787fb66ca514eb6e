// Package worker drives the notifier's poll cycle: list tags, parse
// subscriptions, fetch predictions, match, dispatch, relay alerts.
package worker

import (
	"time"

	"github.com/nextstop/nextstop/internal/transit"
)

// CycleConfig holds configuration for the poll cycle.
type CycleConfig struct {
	// WindowMinutes is the maximum acceptable lead time for a match.
	// Default: transit.DefaultWindowMinutes
	WindowMinutes int

	// Concurrency is the number of concurrent prediction fetches.
	// Pair fetches are independent and idempotent, so running them in
	// parallel is safe as long as the output ordering is fixed before
	// matching. Default: 3
	Concurrency int

	// FetchTimeout bounds one pair's prediction fetch. Default: 10 seconds
	FetchTimeout time.Duration

	// BroadcastTag is the shared audience tag service alerts go to.
	// Default: "service_alerts"
	BroadcastTag string

	// Location is the zone wall-clock times are interpreted in.
	// Default: UTC
	Location *time.Location
}

// DefaultCycleConfig returns the default cycle configuration.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		WindowMinutes: transit.DefaultWindowMinutes,
		Concurrency:   3,
		FetchTimeout:  10 * time.Second,
		BroadcastTag:  "service_alerts",
		Location:      time.UTC,
	}
}

func (c CycleConfig) withDefaults() CycleConfig {
	def := DefaultCycleConfig()
	if c.WindowMinutes == 0 {
		c.WindowMinutes = def.WindowMinutes
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.BroadcastTag == "" {
		c.BroadcastTag = def.BroadcastTag
	}
	if c.Location == nil {
		c.Location = def.Location
	}
	return c
}
