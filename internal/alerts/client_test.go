package alerts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstop/nextstop/internal/alerts"
	"github.com/nextstop/nextstop/internal/resilience"
)

func newTestClient(url string) *alerts.Client {
	return alerts.NewClient(alerts.ClientConfig{
		URL:        url,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("alerts-test")),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_GetAlerts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"alerts":[
			{"description":"Delay on line 10\n"},
			{"description":null},
			{"description":""},
			{"description":"Elevator out at station X"}
		]}`))
	}))
	defer server.Close()

	descriptions, err := newTestClient(server.URL).GetAlerts(context.Background())
	require.NoError(t, err)

	// Null and empty descriptions are dropped; text is returned raw.
	assert.Equal(t, []string{"Delay on line 10\n", "Elevator out at station X"}, descriptions)
}

func TestClient_GetAlerts_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"alerts":[]}`))
	}))
	defer server.Close()

	descriptions, err := newTestClient(server.URL).GetAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, descriptions)
}

func TestClient_GetAlerts_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetAlerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
}
