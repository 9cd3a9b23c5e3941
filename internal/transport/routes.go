package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers groups every API handler so they can be mounted together
type Handlers struct {
	Profile *ProfileHandler
	Catalog *CatalogHandler
	Cart    *CartHandler
	Orders  *OrderHandler
	Admin   *AdminHandler
}

// Mount registers the /api tree on r. Admin routes live under /api/admin
// and run authMiddleware followed by adminMiddleware.
func (h *Handlers) Mount(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		h.Profile.RegisterRoutes(r, authMiddleware)
		h.Catalog.RegisterRoutes(r)
		h.Cart.RegisterRoutes(r, authMiddleware)
		h.Orders.RegisterRoutes(r, authMiddleware)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			h.Catalog.RegisterAdminRoutes(r)
			h.Orders.RegisterAdminRoutes(r)
			h.Admin.RegisterRoutes(r)
		})
	})
}
