// Package main provides the entrypoint for the nextstop arrival notifier.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nextstop/nextstop/internal/alerts"
	"github.com/nextstop/nextstop/internal/config"
	"github.com/nextstop/nextstop/internal/ops"
	"github.com/nextstop/nextstop/internal/push"
	"github.com/nextstop/nextstop/internal/resilience"
	"github.com/nextstop/nextstop/internal/telemetry"
	"github.com/nextstop/nextstop/internal/transit/nextbus"
	"github.com/nextstop/nextstop/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nextstop-notifier"

	_ = godotenv.Load(".env")

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting nextstop notifier")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// One resilient client per collaborator so breakers trip independently.
	collaborators := resilience.NewRegistry()

	pushHTTP := resilience.NewClient(resilience.DefaultClientConfig(push.CollaboratorName))
	collaborators.Register(pushHTTP)

	predictionsHTTP := resilience.NewClient(resilience.DefaultClientConfig(nextbus.CollaboratorName))
	collaborators.Register(predictionsHTTP)

	alertsHTTP := resilience.NewClient(resilience.DefaultClientConfig(alerts.CollaboratorName))
	collaborators.Register(alertsHTTP)

	pushClient := push.NewClient(push.ClientConfig{
		BaseURL:    cfg.PushURL,
		Username:   cfg.PushUsername,
		Password:   cfg.PushPassword,
		HTTPClient: pushHTTP,
		Logger:     log,
	})

	predictionsClient := nextbus.NewClient(nextbus.ClientConfig{
		BaseURL:    cfg.PredictionsURL,
		Location:   cfg.Location,
		HTTPClient: predictionsHTTP,
		Logger:     log,
	})

	alertsClient := alerts.NewClient(alerts.ClientConfig{
		URL:        cfg.ServiceAlertsURL,
		HTTPClient: alertsHTTP,
		Logger:     log,
	})

	cycleCfg := worker.DefaultCycleConfig()
	cycleCfg.BroadcastTag = cfg.BroadcastTag
	cycleCfg.Location = cfg.Location

	job := worker.NewCycleJob(worker.CycleJobConfig{
		Config:      cycleCfg,
		Logger:      log,
		Registry:    pushClient,
		Predictions: predictionsClient,
		Alerts:      alertsClient,
		Meter:       tp.Meter,
	})

	opsRouter := ops.NewRouter(ops.RouterConfig{
		Version:       Version,
		Logger:        log,
		Cycles:        job,
		Collaborators: collaborators,
	})

	server := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      opsRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("ops server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server error")
		}
	}()

	// Poll loop: one cycle per tick, a cycle runs to completion before the
	// next is considered.
	go func() {
		log.Info().
			Dur("poll_interval", cfg.PollInterval).
			Str("time_zone", cfg.Location.String()).
			Msg("poll loop started")

		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()

		job.Run(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("poll loop stopped")
				return
			case <-ticker.C:
				job.Run(ctx)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}

	log.Info().Msg("notifier stopped")
}
