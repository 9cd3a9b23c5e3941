package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase, hyphen separated URL slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Product represents a product in the catalog
type Product struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Slug                string           `json:"slug" db:"slug"`
	Category            string           `json:"category" db:"category"`
	SubCategory         string           `json:"sub_category,omitempty" db:"sub_category"`
	ShortDescription    string           `json:"short_description,omitempty" db:"short_description"`
	FullDescription     string           `json:"full_description,omitempty" db:"full_description"`
	Ingredients         string           `json:"ingredients,omitempty" db:"ingredients"`
	HowToUse            string           `json:"how_to_use,omitempty" db:"how_to_use"`
	StorageInstructions string           `json:"storage_instructions,omitempty" db:"storage_instructions"`
	Weight              string           `json:"weight,omitempty" db:"weight"`
	Price               decimal.Decimal  `json:"price" db:"price"`
	OfferPrice          *decimal.Decimal `json:"offer_price,omitempty" db:"offer_price"`
	StockQuantity       int              `json:"stock_quantity" db:"stock_quantity"`
	Images              []string         `json:"images" db:"images"`
	MainImageIndex      int              `json:"main_image_index" db:"main_image_index"`
	IsOffer             bool             `json:"is_offer" db:"is_offer"`
	IsNewArrival        bool             `json:"is_new_arrival" db:"is_new_arrival"`
	IsFeatured          bool             `json:"is_featured" db:"is_featured"`
	IsActive            bool             `json:"is_active" db:"is_active"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// UnitPrice is the price a customer pays: the offer price when one is set.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.OfferPrice != nil {
		return *p.OfferPrice
	}
	return p.Price
}

// Discount is price minus offer price, zero without an offer.
func (p *Product) Discount() decimal.Decimal {
	if p.OfferPrice == nil {
		return decimal.Zero
	}
	return p.Price.Sub(*p.OfferPrice)
}

// DiscountPercent rounds the discount to a whole percentage of the price.
func (p *Product) DiscountPercent() int64 {
	if p.OfferPrice == nil || p.Price.IsZero() {
		return 0
	}
	return p.Discount().Div(p.Price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MainImage returns the image at MainImageIndex.
func (p *Product) MainImage() string {
	if p.MainImageIndex < 0 || p.MainImageIndex >= len(p.Images) {
		return ""
	}
	return p.Images[p.MainImageIndex]
}

// Validate checks the invariants the catalog stores rely on.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return NewValidationError("name", "name is required")
	case !ValidSlug(p.Slug):
		return NewValidationError("slug", "slug must be lowercase letters, digits and hyphens")
	case p.Category == "":
		return NewValidationError("category", "category is required")
	case p.Price.IsNegative():
		return NewValidationError("price", "price cannot be negative")
	case p.OfferPrice != nil && p.OfferPrice.IsNegative():
		return NewValidationError("offer_price", "offer price cannot be negative")
	case p.OfferPrice != nil && p.OfferPrice.GreaterThanOrEqual(p.Price):
		return NewValidationError("offer_price", "offer price must be less than price")
	case p.StockQuantity < 0:
		return NewValidationError("stock_quantity", "stock cannot be negative")
	case len(p.Images) == 0:
		return NewValidationError("images", "at least one image is required")
	case p.MainImageIndex < 0 || p.MainImageIndex >= len(p.Images):
		return NewValidationError("main_image_index", "main image index is out of range")
	}
	return nil
}

// ProductFilter narrows catalog queries. Nil flags are ignored.
type ProductFilter struct {
	Category     string
	SubCategory  string
	IsOffer      *bool
	IsNewArrival *bool
	IsFeatured   *bool
	ActiveOnly   bool
	Search       string
	IDs          []uuid.UUID
}

// Combo is a bundle of products sold for a single price
type Combo struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Slug          string          `json:"slug" db:"slug"`
	Description   string          `json:"description,omitempty" db:"description"`
	ImageURL      string          `json:"image_url,omitempty" db:"image_url"`
	ComboPrice    decimal.Decimal `json:"combo_price" db:"combo_price"`
	OriginalPrice decimal.Decimal `json:"original_price" db:"original_price"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	Items         []ComboItem     `json:"items,omitempty" db:"-"`
}

// Savings is original price minus combo price.
func (c *Combo) Savings() decimal.Decimal {
	return c.OriginalPrice.Sub(c.ComboPrice)
}

// SavingsPercent rounds savings to a whole percentage of the original price.
func (c *Combo) SavingsPercent() int64 {
	if c.OriginalPrice.IsZero() {
		return 0
	}
	return c.Savings().Div(c.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (c *Combo) Validate() error {
	switch {
	case c.Name == "":
		return NewValidationError("name", "name is required")
	case !ValidSlug(c.Slug):
		return NewValidationError("slug", "slug must be lowercase letters, digits and hyphens")
	case c.ComboPrice.IsNegative():
		return NewValidationError("combo_price", "combo price cannot be negative")
	}
	for _, item := range c.Items {
		if item.Quantity < 1 {
			return NewValidationError("items", "combo item quantity must be at least 1")
		}
	}
	return nil
}

// ComboItem links a combo to one of its products
type ComboItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ComboID   uuid.UUID `json:"combo_id" db:"combo_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ComboOriginalPrice sums unit price times quantity over the combo items.
// Items whose product is missing from products are skipped.
func ComboOriginalPrice(items []ComboItem, products map[uuid.UUID]*Product) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		total = total.Add(p.UnitPrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
