package nextbus_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstop/nextstop/internal/resilience"
	"github.com/nextstop/nextstop/internal/transit"
	"github.com/nextstop/nextstop/internal/transit/nextbus"
)

func newTestClient(t *testing.T, serverURL string, loc *time.Location) *nextbus.Client {
	t.Helper()
	return nextbus.NewClient(nextbus.ClientConfig{
		BaseURL:    serverURL,
		Location:   loc,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("predictions-test")),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_GetPredictions(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	arrival := time.Date(2024, 3, 12, 9, 20, 45, 0, loc)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stop/200/route/10", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"directions":[{"predictions":[{"time":"%d"},{"time":null}]}]}`, arrival.UnixMilli())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, loc)

	preds, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "10", Stop: "200"})
	require.NoError(t, err)
	require.Len(t, preds, 1, "null timestamps are dropped")

	// Truncated to hour:minute, seconds discarded.
	assert.Equal(t, transit.Prediction{
		Arrival: transit.TimeOfDay{Hour: 9, Minute: 20},
		Route:   "10",
		Stop:    "200",
	}, preds[0])
}

func TestClient_GetPredictions_NumericTimestamp(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	arrival := time.Date(2024, 3, 12, 14, 5, 0, 0, loc)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"directions":[{"predictions":[{"time":%d}]}]}`, arrival.UnixMilli())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, loc)

	preds, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "7", Stop: "55"})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, transit.TimeOfDay{Hour: 14, Minute: 5}, preds[0].Arrival)
}

func TestClient_GetPredictions_MultipleDirections(t *testing.T) {
	loc := time.UTC
	a := time.Date(2024, 3, 12, 9, 10, 0, 0, loc).UnixMilli()
	b := time.Date(2024, 3, 12, 9, 25, 0, 0, loc).UnixMilli()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"directions":[{"predictions":[{"time":"%d"}]},{"predictions":[{"time":"%d"}]}]}`, a, b)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, loc)

	preds, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "10", Stop: "200"})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, transit.TimeOfDay{Hour: 9, Minute: 10}, preds[0].Arrival)
	assert.Equal(t, transit.TimeOfDay{Hour: 9, Minute: 25}, preds[1].Arrival)
}

func TestClient_GetPredictions_EmptyDirections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"directions":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.UTC)

	preds, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "10", Stop: "200"})
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestClient_GetPredictions_MissingDirections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.UTC)

	preds, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "10", Stop: "200"})
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestClient_GetPredictions_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.UTC)

	_, err := client.GetPredictions(context.Background(), transit.RouteStopKey{Route: "10", Stop: "200"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
}
