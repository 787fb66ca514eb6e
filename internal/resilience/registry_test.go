package resilience_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstop/nextstop/internal/resilience"
)

func TestRegistry_Health(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register(resilience.NewClient(resilience.DefaultClientConfig("push")))
	registry.Register(resilience.NewClient(resilience.DefaultClientConfig("predictions")))

	health := registry.Health()
	require.Len(t, health, 2)

	for _, h := range health {
		assert.Equal(t, gobreaker.StateClosed, h.CircuitState)
		assert.True(t, h.Healthy())
		assert.Nil(t, h.LastSuccessAt)
		assert.Nil(t, h.LastFailureAt)
	}
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register(resilience.NewClient(resilience.DefaultClientConfig("alerts")))

	registry.RecordSuccess("alerts")
	registry.RecordFailure("alerts", errors.New("connection refused"))

	health := registry.Health()
	require.Len(t, health, 1)

	h := health[0]
	assert.Equal(t, "alerts", h.Name)
	assert.NotNil(t, h.LastSuccessAt)
	assert.NotNil(t, h.LastFailureAt)
	assert.Equal(t, "connection refused", h.LastError)
}

func TestRegistry_UnknownNameIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	// Recording against an unregistered name must not panic.
	registry.RecordSuccess("nope")
	registry.RecordFailure("nope", errors.New("x"))

	assert.Empty(t, registry.Health())
}
