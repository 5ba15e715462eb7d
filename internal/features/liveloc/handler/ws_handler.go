package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"delivery-tracker/internal/core/identity"
	"delivery-tracker/internal/core/logger"
	"delivery-tracker/internal/features/liveloc/domain"
	"delivery-tracker/internal/features/liveloc/hub"
	"delivery-tracker/internal/features/liveloc/service"
	odomain "delivery-tracker/internal/features/orders/domain"
)

// Client frame types accepted on the websocket channel.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameLocation    = "location"
	frameError       = "error"
)

// clientFrame is what a connected client may send.
type clientFrame struct {
	Type    string  `json:"type"`
	OrderID string  `json:"order_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// serverFrame is what the server pushes to clients.
type serverFrame struct {
	Type    string            `json:"type"`
	Message string            `json:"message,omitempty"`
	Payload *domain.Broadcast `json:"payload,omitempty"`
}

// wsSubscriber adapts one websocket connection to the hub. Writes are
// serialized; the hub publishes from whatever goroutine ingested the sample.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send implements hub.Subscriber.
func (s *wsSubscriber) Send(b domain.Broadcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(serverFrame{Type: frameLocation, Payload: &b})
}

func (s *wsSubscriber) sendError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(serverFrame{Type: frameError, Message: message})
}

// WSHandler serves the persistent bidirectional channel: subscriptions to
// order broadcasts plus driver location samples, on one connection.
type WSHandler struct {
	registry      *hub.Hub
	ingestService *service.IngestService
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *hub.Hub, ingestService *service.IngestService) *WSHandler {
	return &WSHandler{
		registry:      registry,
		ingestService: ingestService,
	}
}

// Upgrade gates the route to genuine websocket upgrade requests.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the connection handler. Caller identity resolved during the
// upgrade request travels along in the connection locals.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *WSHandler) serve(conn *websocket.Conn) {
	log := logger.Get()
	sub := &wsSubscriber{conn: conn}
	defer h.registry.Drop(sub)

	caller, _ := conn.Locals("caller").(identity.Caller)

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case frameSubscribe:
			if frame.OrderID == "" {
				sub.sendError("order_id is required")
				continue
			}
			if err := h.registry.Subscribe(frame.OrderID, sub); err != nil {
				sub.sendError(err.Error())
			}
		case frameUnsubscribe:
			h.registry.Unsubscribe(frame.OrderID, sub)
		case frameLocation:
			h.ingestFrame(sub, caller, frame, log)
		default:
			sub.sendError("unknown frame type")
		}
	}
}

// ingestFrame runs one location frame through the same pipeline as the HTTP
// route. Malformed samples are dropped without a reply; authorization
// rejections get an error frame.
func (h *WSHandler) ingestFrame(sub *wsSubscriber, caller identity.Caller, frame clientFrame, log *zap.Logger) {
	sample := domain.Sample{OrderID: frame.OrderID, Lat: frame.Lat, Lng: frame.Lng}

	_, err := h.ingestService.IngestDriverSample(context.Background(), sample, caller.ID, caller.Phone)
	switch {
	case err == nil:
	case errors.Is(err, odomain.ErrValidation):
		log.Debug("dropping malformed location frame",
			zap.String("order_id", frame.OrderID))
	case errors.Is(err, odomain.ErrForbidden), errors.Is(err, odomain.ErrNotFound):
		sub.sendError(err.Error())
	default:
		log.Error("failed to ingest location frame",
			zap.String("order_id", frame.OrderID),
			zap.Error(err))
	}
}
