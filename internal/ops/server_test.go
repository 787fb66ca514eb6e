package ops_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstop/nextstop/internal/ops"
	"github.com/nextstop/nextstop/internal/resilience"
)

type fakeStatusSource struct {
	snapshot map[string]interface{}
}

func (f *fakeStatusSource) MetricsSnapshot() map[string]interface{} {
	return f.snapshot
}

func TestRouter_Health(t *testing.T) {
	router := ops.NewRouter(ops.RouterConfig{
		Version: "1.2.3",
		Logger:  zerolog.Nop(),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestRouter_Status(t *testing.T) {
	collaborators := resilience.NewRegistry()
	collaborators.Register(resilience.NewClient(resilience.DefaultClientConfig("push")))

	router := ops.NewRouter(ops.RouterConfig{
		Version: "1.2.3",
		Logger:  zerolog.Nop(),
		Cycles: &fakeStatusSource{snapshot: map[string]interface{}{
			"cycles":             int64(7),
			"notifications_sent": int64(3),
		}},
		Collaborators: collaborators,
	})

	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	cycles, ok := body["cycles"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), cycles["cycles"])

	list, ok := body["collaborators"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)

	collaborator, ok := list[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "push", collaborator["name"])
	assert.Equal(t, true, collaborator["healthy"])
}

func TestRouter_NotFound(t *testing.T) {
	router := ops.NewRouter(ops.RouterConfig{Logger: zerolog.Nop()})

	req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
