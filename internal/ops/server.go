// Package ops serves the notifier's health and status endpoints.
package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/nextstop/nextstop/internal/resilience"
)

// StatusSource exposes cycle counters for the status endpoint.
type StatusSource interface {
	MetricsSnapshot() map[string]interface{}
}

// RouterConfig holds configuration for the ops router.
type RouterConfig struct {
	Version       string
	Logger        zerolog.Logger
	Cycles        StatusSource
	Collaborators *resilience.Registry
}

// NewRouter creates the chi router for the ops endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(cfg.Logger))
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"version": cfg.Version,
		})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		status := map[string]interface{}{
			"version": cfg.Version,
		}
		if cfg.Cycles != nil {
			status["cycles"] = cfg.Cycles.MetricsSnapshot()
		}
		if cfg.Collaborators != nil {
			collaborators := make([]map[string]interface{}, 0)
			for _, h := range cfg.Collaborators.Health() {
				collaborators = append(collaborators, map[string]interface{}{
					"name":            h.Name,
					"healthy":         h.Healthy(),
					"circuit_state":   h.CircuitState.String(),
					"last_success_at": h.LastSuccessAt,
					"last_failure_at": h.LastFailureAt,
					"last_error":      h.LastError,
				})
			}
			status["collaborators"] = collaborators
		}
		writeJSON(w, http.StatusOK, status)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

// requestLogger logs each ops request with its status and duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.status).
				Dur("duration", time.Since(start)).
				Msg("ops request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
