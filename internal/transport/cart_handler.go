package transport

import (
	"net/http"

	"mansara-store/internal/domain"
	"mansara-store/internal/middleware"
	"mansara-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest references exactly one of a product or a combo.
// Quantity defaults to 1. The one-of rule is left to domain.ItemRef so the
// client sees the same message the service returns.
type AddCartItemRequest struct {
	ProductID *uuid.UUID `json:"product_id"`
	ComboID   *uuid.UUID `json:"combo_id"`
	Quantity  *int       `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

// SetQuantityRequest sets a line's quantity; zero or less removes the line
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=99"`
}

// CartCountResponse is the badge count shown in the storefront header
type CartCountResponse struct {
	Count int `json:"count"`
}

// CartHandler handles the signed-in customer's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes behind authMiddleware
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/count", h.Count)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.SetQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
	})
}

// GetCart returns the resolved cart lines with subtotal and item count
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.cartService.Snapshot(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "get cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, snapshot)
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.cartService.Count(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "count cart items", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartCountResponse{Count: count})
}

// AddItem adds to the cart, merging into an existing line for the same item
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ref := domain.ItemRef{ProductID: req.ProductID, ComboID: req.ComboID}
	item, err := h.cartService.AddItem(r.Context(), middleware.GetIdentity(r.Context()), ref, quantity)
	if err != nil {
		writeServiceError(w, h.logger, "add cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// SetQuantity answers 204 when the line was removed
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.cartService.SetQuantity(r.Context(), middleware.GetIdentity(r.Context()), itemID, req.Quantity)
	if err != nil {
		writeServiceError(w, h.logger, "update cart item", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), middleware.GetIdentity(r.Context()), itemID); err != nil {
		writeServiceError(w, h.logger, "remove cart item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartService.Clear(r.Context(), middleware.GetIdentity(r.Context())); err != nil {
		writeServiceError(w, h.logger, "clear cart", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
