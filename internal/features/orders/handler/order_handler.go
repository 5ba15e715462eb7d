package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"delivery-tracker/internal/core/identity"
	"delivery-tracker/internal/core/logger"
	"delivery-tracker/internal/features/orders/domain"
	"delivery-tracker/internal/features/orders/service"
)

// OrderHandler handles HTTP requests for order lifecycle operations.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
	// CurrentStatus is the order status at rejection time, when relevant.
	CurrentStatus string `json:"current_status,omitempty"`
	// Allowed lists the legal next states for rejected transitions.
	Allowed []string `json:"allowed,omitempty"`
}

// RayID returns the request id set by the requestid middleware.
func RayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// RespondError maps a domain error to its HTTP status and body shape.
func RespondError(c *fiber.Ctx, err error) error {
	resp := ErrorResponse{
		Message: err.Error(),
		RayID:   RayID(c),
	}

	var transitionErr *domain.InvalidTransitionError
	var preconditionErr *domain.PreconditionError

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &transitionErr):
		status = fiber.StatusConflict
		resp.CurrentStatus = transitionErr.Current
		resp.Allowed = transitionErr.Allowed
	case errors.As(err, &preconditionErr):
		status = fiber.StatusPreconditionFailed
		resp.CurrentStatus = string(preconditionErr.Current)
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrPreconditionFailed):
		status = fiber.StatusPreconditionFailed
	case errors.Is(err, domain.ErrValidation):
		status = fiber.StatusBadRequest
	default:
		logger.Get().Error("unhandled error", zap.String("ray_id", resp.RayID), zap.Error(err))
	}

	return c.Status(status).JSON(resp)
}

// TrackingResponse is the live tracking snapshot for one order.
type TrackingResponse struct {
	OrderID           string                `json:"order_id"`
	Status            domain.Status         `json:"status"`
	DeliveryStatus    domain.DeliveryStatus `json:"delivery_status,omitempty"`
	Driver            *domain.Driver        `json:"driver,omitempty"`
	CurrentLocation   *domain.Location      `json:"current_location,omitempty"`
	Address           string                `json:"address"`
	Items             []domain.OrderItem    `json:"items"`
	TotalCents        int64                 `json:"total_cents"`
	RefundPercentage  int                   `json:"refund_percentage,omitempty"`
	RefundAmountCents int64                 `json:"refund_amount_cents,omitempty"`
	RefundStatus      domain.RefundStatus   `json:"refund_status,omitempty"`
	StatusHistory     []domain.HistoryEntry `json:"status_history"`
}

func trackingSnapshot(o *domain.Order) TrackingResponse {
	return TrackingResponse{
		OrderID:           o.ID,
		Status:            o.Status,
		DeliveryStatus:    o.DeliveryStatus,
		Driver:            o.Driver,
		CurrentLocation:   o.CurrentLocation,
		Address:           o.Address,
		Items:             o.Items,
		TotalCents:        o.TotalCents,
		RefundPercentage:  o.RefundPercentage,
		RefundAmountCents: o.RefundAmountCents,
		RefundStatus:      o.RefundStatus,
		StatusHistory:     o.StatusHistory,
	}
}

type placeOrderRequest struct {
	Items         []domain.OrderItem `json:"items"`
	TotalCents    int64              `json:"total_cents"`
	Address       string             `json:"address"`
	PaymentMethod string             `json:"payment_method"`
}

// PlaceOrder godoc
// @Summary Place a new order
// @Description Creates an order in the PLACED state for the calling user
// @Tags orders
// @Accept json
// @Produce json
// @Param order body placeOrderRequest true "Order contents"
// @Success 201 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return RespondError(c, domain.ErrForbidden)
	}

	var req placeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   RayID(c),
		})
	}

	order, err := h.orderService.Place(c.Context(), service.PlaceCommand{
		UserID:        caller.ID,
		Items:         req.Items,
		TotalCents:    req.TotalCents,
		Address:       req.Address,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// ConfirmPayment godoc
// @Summary Confirm payment for an order
// @Description Applies the payment-confirmed fact reported by the gateway
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/pay [post]
func (h *OrderHandler) ConfirmPayment(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)

	order, err := h.orderService.ConfirmPayment(c.Context(), c.Params("id"), domain.Actor{
		Kind: domain.ActorKindAdmin,
		ID:   caller.ID,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}

type advanceStatusRequest struct {
	Status string `json:"status"`
}

// AdvanceStatus godoc
// @Summary Advance the order status
// @Description Moves the order along the forward kitchen flow (PREPARING, READY_FOR_PICKUP)
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body advanceStatusRequest true "Target status"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) AdvanceStatus(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)

	var req advanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   RayID(c),
		})
	}

	order, err := h.orderService.AdvanceStatus(c.Context(), c.Params("id"), domain.Status(req.Status), domain.Actor{
		Kind: domain.ActorKindAdmin,
		ID:   caller.ID,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}

// GetTracking godoc
// @Summary Get the tracking snapshot for an order
// @Description Returns status, delivery status, driver, last persisted location and history
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} TrackingResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/tracking [get]
func (h *OrderHandler) GetTracking(c *fiber.Ctx) error {
	order, err := h.orderService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(trackingSnapshot(order))
}

type assignDeliveryRequest struct {
	DriverID      string `json:"driver_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
}

// AssignDelivery godoc
// @Summary Assign a driver to an order
// @Description Binds the driver and moves the order out for delivery
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param driver body assignDeliveryRequest true "Driver identity"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /orders/{id}/assign-delivery [post]
func (h *OrderHandler) AssignDelivery(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)

	var req assignDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   RayID(c),
		})
	}

	order, err := h.orderService.AssignDelivery(c.Context(), c.Params("id"), domain.Driver{
		ID:            req.DriverID,
		Name:          req.Name,
		Phone:         req.Phone,
		VehicleNumber: req.VehicleNumber,
	}, domain.Actor{Kind: domain.ActorKindAdmin, ID: caller.ID})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}

type deliveryStatusRequest struct {
	DeliveryStatus string `json:"delivery_status"`
}

// UpdateDeliveryStatus godoc
// @Summary Update the delivery status
// @Description Advances the delivery sub-lifecycle on behalf of the assigned driver
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body deliveryStatusRequest true "Next delivery status"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /orders/{id}/delivery-status [patch]
func (h *OrderHandler) UpdateDeliveryStatus(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return RespondError(c, domain.ErrForbidden)
	}

	var req deliveryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   RayID(c),
		})
	}

	order, err := h.orderService.UpdateDeliveryStatus(c.Context(), c.Params("id"),
		domain.DeliveryStatus(req.DeliveryStatus), caller.ID, caller.Phone)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}

type acceptOrderRequest struct {
	Name          string `json:"name"`
	VehicleNumber string `json:"vehicle_number"`
}

// AcceptOrder godoc
// @Summary Accept a ready order
// @Description Lets a driver claim a ready order, moving it straight to PICKED_UP
// @Tags drivers
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /orders/{id}/accept [post]
func (h *OrderHandler) AcceptOrder(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return RespondError(c, domain.ErrForbidden)
	}

	// Body is optional; drivers may send their display details along.
	var req acceptOrderRequest
	_ = c.BodyParser(&req)

	order, err := h.orderService.Accept(c.Context(), c.Params("id"), domain.Driver{
		ID:            caller.ID,
		Name:          req.Name,
		Phone:         caller.Phone,
		VehicleNumber: req.VehicleNumber,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}

// DriverOrders godoc
// @Summary List orders visible to the calling driver
// @Description Returns the claimable pool plus the driver's own in-progress orders
// @Tags drivers
// @Produce json
// @Success 200 {array} domain.Order
// @Router /drivers/me/orders [get]
func (h *OrderHandler) DriverOrders(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return RespondError(c, domain.ErrForbidden)
	}

	orders, err := h.orderService.DriverOrders(c.Context(), caller.ID, caller.Phone)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(orders)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder godoc
// @Summary Cancel an order
// @Description Applies the cancellation policy and computes the refund outcome
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param reason body cancelOrderRequest false "Cancellation reason"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	caller, ok := identity.FromCtx(c)
	if !ok {
		return RespondError(c, domain.ErrForbidden)
	}

	var req cancelOrderRequest
	_ = c.BodyParser(&req)

	order, err := h.orderService.Cancel(c.Context(), c.Params("id"), domain.Actor{
		Kind: domain.ActorKindUser,
		ID:   caller.ID,
	}, req.Reason)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(order)
}
