package transport

import (
	"net/http"

	"mansara-store/internal/domain"
	"mansara-store/internal/middleware"
	"mansara-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the back-office dashboard, customer and order lists
type AdminHandler struct {
	adminService service.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// RegisterRoutes registers the admin projections on an admin router
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/customers", h.Customers)
	r.Get("/orders", h.Orders)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.adminService.Dashboard(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "load dashboard", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}

// Customers lists customers with their order count and total spent
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.adminService.Customers(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list customers", err)
		return
	}

	if customers == nil {
		customers = []service.CustomerSummary{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, customers)
}

// Orders lists all orders; ?status= narrows to one status
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.adminService.Orders(r.Context(), middleware.GetIdentity(r.Context()), status)
	if err != nil {
		writeServiceError(w, h.logger, "list orders", err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}
