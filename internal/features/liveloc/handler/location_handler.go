package handler

import (
	"github.com/gofiber/fiber/v2"

	"delivery-tracker/internal/core/identity"
	"delivery-tracker/internal/features/liveloc/domain"
	"delivery-tracker/internal/features/liveloc/service"
	odomain "delivery-tracker/internal/features/orders/domain"
	ohandler "delivery-tracker/internal/features/orders/handler"
)

// LocationHandler handles HTTP requests for live location operations.
type LocationHandler struct {
	ingestService *service.IngestService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(ingestService *service.IngestService) *LocationHandler {
	return &LocationHandler{
		ingestService: ingestService,
	}
}

type coordinatesRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ingestAck is the acknowledgement for an accepted sample. It reports the
// fan-out size, not whether the sample earned a durable write.
type ingestAck struct {
	OrderID   string `json:"order_id"`
	Delivered int    `json:"delivered"`
}

// PostDriverLocation godoc
// @Summary Report the driver's position for an order
// @Description Broadcasts the sample to live watchers and persists it when the throttle allows
// @Tags location
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param sample body coordinatesRequest true "Coordinates"
// @Success 202 {object} ingestAck
// @Failure 400 {object} ohandler.ErrorResponse
// @Failure 403 {object} ohandler.ErrorResponse
// @Failure 404 {object} ohandler.ErrorResponse
// @Router /orders/{id}/location [post]
func (h *LocationHandler) PostDriverLocation(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return ohandler.RespondError(c, odomain.ErrForbidden)
	}

	var req coordinatesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ohandler.ErrorResponse{
			Message: "invalid request body",
			RayID:   ohandler.RayID(c),
		})
	}

	result, err := h.ingestService.IngestDriverSample(c.Context(), domain.Sample{
		OrderID: c.Params("id"),
		Lat:     req.Lat,
		Lng:     req.Lng,
	}, caller.ID, caller.Phone)
	if err != nil {
		return ohandler.RespondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ingestAck{
		OrderID:   result.Broadcast.OrderID,
		Delivered: result.Delivered,
	})
}

// GetLocation godoc
// @Summary Get the last persisted driver location
// @Description Returns the durably stored position, which may lag the live broadcast
// @Tags location
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} odomain.Location
// @Failure 404 {object} ohandler.ErrorResponse
// @Router /orders/{id}/location [get]
func (h *LocationHandler) GetLocation(c *fiber.Ctx) error {
	location, err := h.ingestService.CurrentLocation(c.Context(), c.Params("id"))
	if err != nil {
		return ohandler.RespondError(c, err)
	}
	if location == nil {
		return c.Status(fiber.StatusNotFound).JSON(ohandler.ErrorResponse{
			Message: "location not available",
			RayID:   ohandler.RayID(c),
		})
	}
	return c.JSON(location)
}

// PostUserLocation godoc
// @Summary Record the customer's own position
// @Description Stores the customer location on the order; low frequency, never throttled,
// no authorization beyond the order existing
// @Tags location
// @Accept json
// @Param id path string true "Order ID"
// @Param sample body coordinatesRequest true "Coordinates"
// @Success 204
// @Failure 404 {object} ohandler.ErrorResponse
// @Router /orders/{id}/user-location [post]
func (h *LocationHandler) PostUserLocation(c *fiber.Ctx) error {
	var req coordinatesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ohandler.ErrorResponse{
			Message: "invalid request body",
			RayID:   ohandler.RayID(c),
		})
	}

	err := h.ingestService.SetUserLocation(c.Context(), domain.Sample{
		OrderID: c.Params("id"),
		Lat:     req.Lat,
		Lng:     req.Lng,
	})
	if err != nil {
		return ohandler.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
