package transport

import (
	"net/http"

	"mansara-store/internal/domain"
	"mansara-store/internal/middleware"
	"mansara-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest places an order for everything in the caller's cart
type CheckoutRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"omitempty,oneof=cod"`
}

// UpdateOrderStatusRequest moves an order to the next fulfillment status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed packed shipped delivered cancelled"`
}

// UpdatePaymentStatusRequest records a payment outcome
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
}

// OrderHandler handles checkout, order history and tracking
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the customer order routes behind authMiddleware
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{orderNumber}", h.GetOrder)
		r.Get("/{orderNumber}/tracking", h.Tracking)
	})
}

// RegisterAdminRoutes registers fulfillment updates on an admin router
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders/{orderID}", h.GetOrderByID)
	r.Patch("/orders/{orderID}/status", h.UpdateStatus)
	r.Patch("/orders/{orderID}/payment", h.UpdatePaymentStatus)
}

// Checkout snapshots the cart, creates a pending order and empties the cart
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), middleware.GetIdentity(r.Context()), req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		writeServiceError(w, h.logger, "place order", err)
		return
	}

	w.Header().Set("Location", "/api/orders/"+order.OrderNumber)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListForUser(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list orders", err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetByNumber(r.Context(), middleware.GetIdentity(r.Context()), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeServiceError(w, h.logger, "get order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Tracking returns the step view of an order's fulfillment
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	tracking, err := h.orderService.Tracking(r.Context(), middleware.GetIdentity(r.Context()), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeServiceError(w, h.logger, "track order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tracking)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(r.Context(), middleware.GetIdentity(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, h.logger, "get order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.AdvanceStatus(r.Context(), middleware.GetIdentity(r.Context()), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		writeServiceError(w, h.logger, "update order status", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}
	var req UpdatePaymentStatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(r.Context(), middleware.GetIdentity(r.Context()), orderID, domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		writeServiceError(w, h.logger, "update payment status", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
