package transport

import (
	"net/http"
	"strconv"

	"mansara-store/internal/domain"
	"mansara-store/internal/middleware"
	"mansara-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the admin payload for creating or replacing a product.
// Price rules (offer below price, image index in range) are checked by the
// domain model.
type ProductRequest struct {
	Name                string           `json:"name" validate:"required,max=200"`
	Slug                string           `json:"slug" validate:"required,max=200"`
	Category            string           `json:"category" validate:"required,max=100"`
	SubCategory         string           `json:"sub_category" validate:"max=100"`
	ShortDescription    string           `json:"short_description"`
	FullDescription     string           `json:"full_description"`
	Ingredients         string           `json:"ingredients"`
	HowToUse            string           `json:"how_to_use"`
	StorageInstructions string           `json:"storage_instructions"`
	Weight              string           `json:"weight" validate:"max=50"`
	Price               decimal.Decimal  `json:"price"`
	OfferPrice          *decimal.Decimal `json:"offer_price"`
	StockQuantity       int              `json:"stock_quantity" validate:"gte=0"`
	Images              []string         `json:"images" validate:"required,min=1,dive,required"`
	MainImageIndex      int              `json:"main_image_index" validate:"gte=0"`
	IsOffer             bool             `json:"is_offer"`
	IsNewArrival        bool             `json:"is_new_arrival"`
	IsFeatured          bool             `json:"is_featured"`
	IsActive            *bool            `json:"is_active"`
}

func (req *ProductRequest) product(id uuid.UUID) *domain.Product {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.Product{
		ID:                  id,
		Name:                req.Name,
		Slug:                req.Slug,
		Category:            req.Category,
		SubCategory:         req.SubCategory,
		ShortDescription:    req.ShortDescription,
		FullDescription:     req.FullDescription,
		Ingredients:         req.Ingredients,
		HowToUse:            req.HowToUse,
		StorageInstructions: req.StorageInstructions,
		Weight:              req.Weight,
		Price:               req.Price,
		OfferPrice:          req.OfferPrice,
		StockQuantity:       req.StockQuantity,
		Images:              req.Images,
		MainImageIndex:      req.MainImageIndex,
		IsOffer:             req.IsOffer,
		IsNewArrival:        req.IsNewArrival,
		IsFeatured:          req.IsFeatured,
		IsActive:            active,
	}
}

// ComboItemRequest is one product line of a combo
type ComboItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=99"`
}

// ComboRequest is the admin payload for a combo. Items are only read on
// create; use the items endpoint to replace them later.
type ComboRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Slug        string             `json:"slug" validate:"required,max=200"`
	Description string             `json:"description"`
	ImageURL    string             `json:"image_url" validate:"omitempty,url"`
	ComboPrice  decimal.Decimal    `json:"combo_price"`
	IsActive    *bool              `json:"is_active"`
	Items       []ComboItemRequest `json:"items" validate:"dive"`
}

func (req *ComboRequest) combo(id uuid.UUID) *domain.Combo {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.Combo{
		ID:          id,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		ComboPrice:  req.ComboPrice,
		IsActive:    active,
		Items:       comboItems(req.Items),
	}
}

// ComboItemsRequest replaces every item of a combo
type ComboItemsRequest struct {
	Items []ComboItemRequest `json:"items" validate:"required,min=1,dive"`
}

func comboItems(reqs []ComboItemRequest) []domain.ComboItem {
	items := make([]domain.ComboItem, 0, len(reqs))
	for _, item := range reqs {
		items = append(items, domain.ComboItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items
}

// ProductView adds the derived pricing fields the storefront shows
type ProductView struct {
	*domain.Product
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int64           `json:"discount_percent"`
	MainImage       string          `json:"main_image"`
}

func productView(p *domain.Product) ProductView {
	return ProductView{
		Product:         p,
		UnitPrice:       p.UnitPrice(),
		DiscountPercent: p.DiscountPercent(),
		MainImage:       p.MainImage(),
	}
}

// ComboView adds savings to a combo
type ComboView struct {
	*domain.Combo
	Savings        decimal.Decimal `json:"savings"`
	SavingsPercent int64           `json:"savings_percent"`
}

func comboView(c *domain.Combo) ComboView {
	return ComboView{
		Combo:          c,
		Savings:        c.Savings(),
		SavingsPercent: c.SavingsPercent(),
	}
}

// CatalogHandler serves the public catalog and the admin catalog screens
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{slug}", h.GetProduct)
	})
	r.Route("/combos", func(r chi.Router) {
		r.Get("/", h.ListCombos)
		r.Get("/{slug}", h.GetCombo)
	})
}

// RegisterAdminRoutes registers catalog management. The caller is expected
// to have mounted auth and admin checks on r.
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListAllProducts)
		r.Post("/", h.CreateProduct)
		r.Put("/{productID}", h.UpdateProduct)
		r.Delete("/{productID}", h.DeleteProduct)
	})
	r.Route("/combos", func(r chi.Router) {
		r.Get("/", h.ListAllCombos)
		r.Post("/", h.CreateCombo)
		r.Put("/{comboID}", h.UpdateCombo)
		r.Put("/{comboID}/items", h.SetComboItems)
		r.Post("/{comboID}/recompute", h.RecomputeComboPrice)
		r.Delete("/{comboID}", h.DeleteCombo)
	})
}

// productFilter reads catalog filters from the query string:
// category, sub_category, q, offer, new, featured
func productFilter(r *http.Request) domain.ProductFilter {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		Category:    q.Get("category"),
		SubCategory: q.Get("sub_category"),
		Search:      q.Get("q"),
	}
	filter.IsOffer = boolQuery(q.Get("offer"))
	filter.IsNewArrival = boolQuery(q.Get("new"))
	filter.IsFeatured = boolQuery(q.Get("featured"))
	return filter
}

func boolQuery(v string) *bool {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	filter := productFilter(r)
	filter.ActiveOnly = activeOnly

	products, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "list products", err)
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// ListProducts lists active products for the storefront
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

// ListAllProducts lists every product, inactive ones included
func (h *CatalogHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

// GetProduct returns an active product by slug
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err == nil && !product.IsActive {
		err = domain.ErrNotFound
	}
	if err != nil {
		writeServiceError(w, h.logger, "get product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productView(product))
}

func (h *CatalogHandler) listCombos(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	combos, err := h.catalogService.ListCombos(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, h.logger, "list combos", err)
		return
	}

	views := make([]ComboView, 0, len(combos))
	for _, c := range combos {
		views = append(views, comboView(c))
	}
	middleware.RespondWithJSON(w, http.StatusOK, views)
}

func (h *CatalogHandler) ListCombos(w http.ResponseWriter, r *http.Request) {
	h.listCombos(w, r, true)
}

func (h *CatalogHandler) ListAllCombos(w http.ResponseWriter, r *http.Request) {
	h.listCombos(w, r, false)
}

// GetCombo returns an active combo with its items
func (h *CatalogHandler) GetCombo(w http.ResponseWriter, r *http.Request) {
	combo, err := h.catalogService.GetComboBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err == nil && !combo.IsActive {
		err = domain.ErrNotFound
	}
	if err != nil {
		writeServiceError(w, h.logger, "get combo", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, comboView(combo))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), middleware.GetIdentity(r.Context()), req.product(uuid.Nil))
	if err != nil {
		writeServiceError(w, h.logger, "create product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, productView(product))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), middleware.GetIdentity(r.Context()), req.product(id))
	if err != nil {
		writeServiceError(w, h.logger, "update product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productView(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		writeServiceError(w, h.logger, "delete product", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) CreateCombo(w http.ResponseWriter, r *http.Request) {
	var req ComboRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	combo, err := h.catalogService.CreateCombo(r.Context(), middleware.GetIdentity(r.Context()), req.combo(uuid.Nil))
	if err != nil {
		writeServiceError(w, h.logger, "create combo", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, comboView(combo))
}

func (h *CatalogHandler) UpdateCombo(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "comboID")
	if !ok {
		return
	}
	var req ComboRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	combo, err := h.catalogService.UpdateCombo(r.Context(), middleware.GetIdentity(r.Context()), req.combo(id))
	if err != nil {
		writeServiceError(w, h.logger, "update combo", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, comboView(combo))
}

func (h *CatalogHandler) SetComboItems(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "comboID")
	if !ok {
		return
	}
	var req ComboItemsRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	combo, err := h.catalogService.SetComboItems(r.Context(), middleware.GetIdentity(r.Context()), id, comboItems(req.Items))
	if err != nil {
		writeServiceError(w, h.logger, "set combo items", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, comboView(combo))
}

func (h *CatalogHandler) RecomputeComboPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "comboID")
	if !ok {
		return
	}

	combo, err := h.catalogService.RecomputeComboPrice(r.Context(), middleware.GetIdentity(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "recompute combo price", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, comboView(combo))
}

func (h *CatalogHandler) DeleteCombo(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "comboID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCombo(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		writeServiceError(w, h.logger, "delete combo", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
