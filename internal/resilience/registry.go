package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CollaboratorHealth is a point-in-time view of one collaborator client,
// served by the ops endpoint.
type CollaboratorHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the collaborator's breaker is closed.
func (h *CollaboratorHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Registry tracks the notifier's collaborator clients so the ops endpoint
// can report their breaker state in one place.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*tracked
}

type tracked struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty collaborator registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*tracked)}
}

// Register adds a collaborator client under its configured name.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Name()] = &tracked{client: client}
}

// RecordSuccess notes a successful call to the named collaborator.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		now := time.Now()
		t.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call to the named collaborator.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		now := time.Now()
		t.lastFailureAt = &now
		if err != nil {
			t.lastError = err.Error()
		}
	}
}

// Health returns the health of every registered collaborator.
func (r *Registry) Health() []*CollaboratorHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*CollaboratorHealth, 0, len(r.clients))
	for name, t := range r.clients {
		health = append(health, &CollaboratorHealth{
			Name:          name,
			CircuitState:  t.client.BreakerState(),
			Counts:        t.client.BreakerCounts(),
			LastSuccessAt: t.lastSuccessAt,
			LastFailureAt: t.lastFailureAt,
			LastError:     t.lastError,
		})
	}
	return health
}
