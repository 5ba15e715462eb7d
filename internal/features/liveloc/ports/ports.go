package ports

import (
	"delivery-tracker/internal/features/liveloc/domain"
)

// Broadcaster fans a location update out to live watchers and reports how
// many received it. Implemented by the websocket hub.
type Broadcaster interface {
	Publish(b domain.Broadcast) int
}
