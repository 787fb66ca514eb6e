package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// CycleMetrics aggregates counters across cycles for the ops endpoint.
type CycleMetrics struct {
	mu sync.RWMutex

	Cycles        int64
	AbortedCycles int64
	Matches       int64
	Sent          int64
	Suppressed    int64
	SendFailures  int64
	FetchFailures int64
	AlertsRelayed int64
	AlertFailures int64

	LastCycleAt       time.Time
	LastCycleDuration time.Duration
	TotalDuration     time.Duration
}

func (m *CycleMetrics) record(r *CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Cycles++
	if r.Aborted {
		m.AbortedCycles++
	}
	m.Matches += int64(r.Matches)
	m.Sent += int64(r.Sent)
	m.Suppressed += int64(r.Suppressed)
	m.SendFailures += int64(r.SendFailures)
	m.FetchFailures += int64(r.FetchFailures)
	m.AlertsRelayed += int64(r.AlertsRelayed)
	m.AlertFailures += int64(r.AlertFailures)
	m.LastCycleAt = r.EndTime
	m.LastCycleDuration = r.Duration
	m.TotalDuration += r.Duration
}

// Metrics returns a copy of the aggregate counters.
func (j *CycleJob) Metrics() CycleMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return CycleMetrics{
		Cycles:            j.metrics.Cycles,
		AbortedCycles:     j.metrics.AbortedCycles,
		Matches:           j.metrics.Matches,
		Sent:              j.metrics.Sent,
		Suppressed:        j.metrics.Suppressed,
		SendFailures:      j.metrics.SendFailures,
		FetchFailures:     j.metrics.FetchFailures,
		AlertsRelayed:     j.metrics.AlertsRelayed,
		AlertFailures:     j.metrics.AlertFailures,
		LastCycleAt:       j.metrics.LastCycleAt,
		LastCycleDuration: j.metrics.LastCycleDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the aggregate counters as a map for the ops
// status endpoint.
func (j *CycleJob) MetricsSnapshot() map[string]interface{} {
	m := j.Metrics()
	return map[string]interface{}{
		"cycles":              m.Cycles,
		"aborted_cycles":      m.AbortedCycles,
		"matches":             m.Matches,
		"notifications_sent":  m.Sent,
		"sends_suppressed":    m.Suppressed,
		"send_failures":       m.SendFailures,
		"fetch_failures":      m.FetchFailures,
		"alerts_relayed":      m.AlertsRelayed,
		"alert_failures":      m.AlertFailures,
		"last_cycle_at":       m.LastCycleAt,
		"last_cycle_duration": m.LastCycleDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}

// instruments holds the OpenTelemetry counters, all nil when telemetry is
// not configured.
type instruments struct {
	cycles        metric.Int64Counter
	sent          metric.Int64Counter
	suppressed    metric.Int64Counter
	fetchFailures metric.Int64Counter
	alertsRelayed metric.Int64Counter
}

func newInstruments(meter metric.Meter, logger zerolog.Logger) *instruments {
	if meter == nil {
		return &instruments{}
	}

	ins := &instruments{}
	var err error
	if ins.cycles, err = meter.Int64Counter("notifier.cycles"); err != nil {
		logger.Warn().Err(err).Msg("failed to create cycle counter")
	}
	if ins.sent, err = meter.Int64Counter("notifier.notifications_sent"); err != nil {
		logger.Warn().Err(err).Msg("failed to create sent counter")
	}
	if ins.suppressed, err = meter.Int64Counter("notifier.sends_suppressed"); err != nil {
		logger.Warn().Err(err).Msg("failed to create suppressed counter")
	}
	if ins.fetchFailures, err = meter.Int64Counter("notifier.fetch_failures"); err != nil {
		logger.Warn().Err(err).Msg("failed to create fetch failure counter")
	}
	if ins.alertsRelayed, err = meter.Int64Counter("notifier.alerts_relayed"); err != nil {
		logger.Warn().Err(err).Msg("failed to create alert counter")
	}
	return ins
}

func (i *instruments) record(ctx context.Context, r *CycleResult) {
	if i.cycles != nil {
		i.cycles.Add(ctx, 1)
	}
	if i.sent != nil {
		i.sent.Add(ctx, int64(r.Sent))
	}
	if i.suppressed != nil {
		i.suppressed.Add(ctx, int64(r.Suppressed))
	}
	if i.fetchFailures != nil {
		i.fetchFailures.Add(ctx, int64(r.FetchFailures))
	}
	if i.alertsRelayed != nil {
		i.alertsRelayed.Add(ctx, int64(r.AlertsRelayed))
	}
}
