package throttle

import (
	"context"
	"math"
	"time"
)

// Decision is the persist-or-skip outcome for one sample.
type Decision string

const (
	// DecisionPersist means the sample is worth a durable write.
	DecisionPersist Decision = "persist"
	// DecisionSkipThrottled means too little time has passed since the last
	// durable write, regardless of how far the driver moved.
	DecisionSkipThrottled Decision = "throttled"
	// DecisionSkipNoChange means the driver has not moved past the deadband,
	// even though the interval has elapsed.
	DecisionSkipNoChange Decision = "no-change"
)

// State is the per-order memory of the last durable write.
type State struct {
	LastPersistedAt time.Time `json:"last_persisted_at"`
	LastLat         float64   `json:"last_lat"`
	LastLng         float64   `json:"last_lng"`
}

// StateStore is the port for the per-order throttle state. Sharing it (redis)
// keeps horizontally scaled instances from making divergent decisions.
type StateStore interface {
	// Get returns the state for the order, or nil when none is recorded.
	Get(ctx context.Context, orderID string) (*State, error)

	// Set replaces the state for the order.
	Set(ctx context.Context, orderID string, state State) error
}

// Decide is the pure persist-or-skip function.
// The first sample for an order always persists. Within the interval nothing
// persists, no matter the movement. After the interval, only movement past
// the deadband on at least one axis persists: a stationary driver never
// produces a durable write beyond the first sample.
func Decide(prev *State, lat, lng float64, now time.Time, interval time.Duration, minDelta float64) Decision {
	if prev == nil {
		return DecisionPersist
	}
	if now.Sub(prev.LastPersistedAt) < interval {
		return DecisionSkipThrottled
	}
	if math.Abs(lat-prev.LastLat) < minDelta && math.Abs(lng-prev.LastLng) < minDelta {
		return DecisionSkipNoChange
	}
	return DecisionPersist
}

// Throttler binds the decision function to a state store and its tuning.
type Throttler struct {
	store    StateStore
	interval time.Duration
	minDelta float64
}

// New creates a Throttler.
func New(store StateStore, interval time.Duration, minDelta float64) *Throttler {
	return &Throttler{store: store, interval: interval, minDelta: minDelta}
}

// Decide reads the order's state and returns the persist-or-skip outcome.
// When the state store is unreachable the sample is treated as first-seen
// (persist) and the error is returned for logging.
func (t *Throttler) Decide(ctx context.Context, orderID string, lat, lng float64, now time.Time) (Decision, error) {
	prev, err := t.store.Get(ctx, orderID)
	if err != nil {
		return DecisionPersist, err
	}
	return Decide(prev, lat, lng, now, t.interval, t.minDelta), nil
}

// MarkPersisted records a successful durable write. Never called for failed
// writes, so the next sample retries against the old state.
func (t *Throttler) MarkPersisted(ctx context.Context, orderID string, lat, lng float64, now time.Time) error {
	return t.store.Set(ctx, orderID, State{LastPersistedAt: now, LastLat: lat, LastLng: lng})
}
