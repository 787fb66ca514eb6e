package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/nextstop/nextstop/internal/notify"
	"github.com/nextstop/nextstop/internal/transit"
)

// TagRegistry is the subscription/push registry collaborator.
type TagRegistry interface {
	ListTags(ctx context.Context) ([]string, error)
	CreateTag(ctx context.Context, name string) error
	Push(ctx context.Context, body string, tags []string) error
}

// PredictionProvider fetches predictions for one (route, stop) pair.
type PredictionProvider interface {
	GetPredictions(ctx context.Context, key transit.RouteStopKey) ([]transit.Prediction, error)
}

// AlertProvider fetches the current service alerts.
type AlertProvider interface {
	GetAlerts(ctx context.Context) ([]string, error)
}

// CycleJobConfig holds everything needed to construct a CycleJob.
type CycleJobConfig struct {
	Config      CycleConfig
	Logger      zerolog.Logger
	Registry    TagRegistry
	Predictions PredictionProvider
	Alerts      AlertProvider

	// Meter enables OpenTelemetry counters when set.
	Meter metric.Meter

	// Now overrides the clock, for tests. Default: time.Now
	Now func() time.Time
}

// CycleJob runs one poll cycle at a time. Every cycle rebuilds its working
// set from scratch; no state except the aggregate metrics survives a cycle
// boundary, and no error escapes Run.
type CycleJob struct {
	config      CycleConfig
	logger      zerolog.Logger
	registry    TagRegistry
	predictions PredictionProvider
	alerts      AlertProvider
	now         func() time.Time

	metrics     *CycleMetrics
	instruments *instruments
}

// NewCycleJob creates a cycle job.
func NewCycleJob(cfg CycleJobConfig) *CycleJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &CycleJob{
		config:      cfg.Config.withDefaults(),
		logger:      cfg.Logger,
		registry:    cfg.Registry,
		predictions: cfg.Predictions,
		alerts:      cfg.Alerts,
		now:         now,
		metrics:     &CycleMetrics{},
		instruments: newInstruments(cfg.Meter, cfg.Logger),
	}
}

// CycleResult describes what one cycle did.
type CycleResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Aborted is true when the tag fetch failed and the rest of the
	// cycle was skipped.
	Aborted bool

	Tags          int
	Subscriptions int
	Pairs         int
	FetchFailures int
	Predictions   int
	Matches       int
	Sent          int
	Suppressed    int
	SendFailures  int
	AlertsRelayed int
	AlertFailures int
}

// Run executes one full cycle. It never returns an error: every failure is
// absorbed at the stage that detected it and reported through the result,
// the metrics, and a log line.
func (j *CycleJob) Run(ctx context.Context) *CycleResult {
	logger := j.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	result := &CycleResult{StartTime: j.now()}
	defer func() {
		result.EndTime = j.now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		j.metrics.record(result)
		j.instruments.record(ctx, result)

		logger.Info().
			Dur("duration", result.Duration).
			Bool("aborted", result.Aborted).
			Int("tags", result.Tags).
			Int("subscriptions", result.Subscriptions).
			Int("predictions", result.Predictions).
			Int("matches", result.Matches).
			Int("sent", result.Sent).
			Int("suppressed", result.Suppressed).
			Int("alerts_relayed", result.AlertsRelayed).
			Msg("cycle completed")
	}()

	logger.Debug().Msg("cycle started")

	tags, err := j.registry.ListTags(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list tags, aborting cycle")
		result.Aborted = true
		return result
	}
	result.Tags = len(tags)

	subs := transit.ParseSubscriptions(tags)
	result.Subscriptions = len(subs)
	logger.Debug().Int("tags", len(tags)).Int("subscriptions", len(subs)).Msg("parsed subscriptions")

	keys := transit.PairKeys(subs)
	result.Pairs = len(keys)

	preds := j.fetchPredictions(ctx, logger, keys, result)
	result.Predictions = len(preds)

	matches := transit.MatchAll(subs, preds, j.config.WindowMinutes)
	result.Matches = len(matches)

	j.dispatchMatches(ctx, logger, matches, result)
	j.relayAlerts(ctx, logger, result)

	return result
}

type pairResult struct {
	key   transit.RouteStopKey
	preds []transit.Prediction
	err   error
}

// fetchPredictions fetches every pair through a bounded worker pool, then
// flattens the results sorted by (route, stop) with per-pair feed order
// preserved inside each pair. The sort pins down the ordering the
// first-match selection depends on, which concurrent fetches would
// otherwise leave up to scheduling. Duplicates across pairs are removed.
func (j *CycleJob) fetchPredictions(ctx context.Context, logger zerolog.Logger, keys []transit.RouteStopKey, result *CycleResult) []transit.Prediction {
	if len(keys) == 0 {
		return nil
	}

	keysChan := make(chan transit.RouteStopKey, len(keys))
	resultsChan := make(chan pairResult, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range keysChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				pairCtx, cancel := context.WithTimeout(ctx, j.config.FetchTimeout)
				preds, err := j.predictions.GetPredictions(pairCtx, key)
				cancel()
				resultsChan <- pairResult{key: key, preds: preds, err: err}
			}
		}()
	}

	for _, key := range keys {
		keysChan <- key
	}
	close(keysChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	byPair := make(map[transit.RouteStopKey][]transit.Prediction, len(keys))
	for pr := range resultsChan {
		if pr.err != nil {
			// One broken pair is no predictions for that pair, nothing more.
			logger.Warn().Err(pr.err).
				Str("route", pr.key.Route).
				Str("stop", pr.key.Stop).
				Msg("skipping predictions for pair")
			result.FetchFailures++
			continue
		}
		byPair[pr.key] = pr.preds
	}

	fetched := make([]transit.RouteStopKey, 0, len(byPair))
	for key := range byPair {
		fetched = append(fetched, key)
	}
	sort.Slice(fetched, func(a, b int) bool {
		if fetched[a].Route != fetched[b].Route {
			return fetched[a].Route < fetched[b].Route
		}
		return fetched[a].Stop < fetched[b].Stop
	})

	seen := make(map[transit.Prediction]struct{})
	flat := make([]transit.Prediction, 0)
	for _, key := range fetched {
		for _, pred := range byPair[key] {
			if _, dup := seen[pred]; dup {
				continue
			}
			seen[pred] = struct{}{}
			flat = append(flat, pred)
		}
	}

	return flat
}

// dispatchMatches composes and sends one notification per match, each to
// an audience of exactly that subscription's raw tag.
func (j *CycleJob) dispatchMatches(ctx context.Context, logger zerolog.Logger, matches []transit.Match, result *CycleResult) {
	for _, m := range matches {
		msg, lead, ok := notify.ComposeArrival(m, j.now(), j.config.Location)
		if !ok {
			// The vehicle is judged to have already passed.
			logger.Info().
				Str("tag", m.Subscription.RawTag).
				Int("lead_minutes", lead).
				Msg("suppressing notification, negative lead time")
			result.Suppressed++
			continue
		}

		if err := j.registry.Push(ctx, msg, []string{m.Subscription.RawTag}); err != nil {
			logger.Error().Err(err).
				Str("tag", m.Subscription.RawTag).
				Msg("failed to send notification")
			result.SendFailures++
			continue
		}

		logger.Info().
			Str("tag", m.Subscription.RawTag).
			Str("route", m.Prediction.Route).
			Str("stop", m.Prediction.Stop).
			Int("lead_minutes", lead).
			Msg("notification sent")
		result.Sent++
	}
}

// relayAlerts rebroadcasts every current service alert to the broadcast
// audience. Identical alerts are sent once per cycle, but an alert that
// stays on the feed is resent every cycle; the feed carries no identity
// beyond the text, so cross-cycle dedup would need state this core
// deliberately does not keep.
func (j *CycleJob) relayAlerts(ctx context.Context, logger zerolog.Logger, result *CycleResult) {
	if err := j.registry.CreateTag(ctx, j.config.BroadcastTag); err != nil {
		logger.Warn().Err(err).
			Str("tag", j.config.BroadcastTag).
			Msg("failed to ensure broadcast tag")
	}

	descriptions, err := j.alerts.GetAlerts(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch service alerts")
		return
	}

	seen := make(map[string]struct{}, len(descriptions))
	for _, description := range descriptions {
		msg := notify.ComposeAlert(description)
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}

		if err := j.registry.Push(ctx, msg, []string{j.config.BroadcastTag}); err != nil {
			logger.Error().Err(err).Msg("failed to broadcast service alert")
			result.AlertFailures++
			continue
		}
		result.AlertsRelayed++
	}
}
