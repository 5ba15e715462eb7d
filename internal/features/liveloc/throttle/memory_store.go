package throttle

import (
	"context"
	"sync"
)

// MemoryStateStore is a process-local StateStore. Suitable for a single
// instance; scaled deployments use the redis store so all instances share
// one view of the deadband state.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[string]State{}}
}

// Get returns the state for the order, or nil when none is recorded.
func (m *MemoryStateStore) Get(_ context.Context, orderID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[orderID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Set replaces the state for the order.
func (m *MemoryStateStore) Set(_ context.Context, orderID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[orderID] = state
	return nil
}
