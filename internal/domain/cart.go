package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRef points at either a product or a combo, never both.
type ItemRef struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	ComboID   *uuid.UUID `json:"combo_id,omitempty"`
}

func ProductRef(id uuid.UUID) ItemRef { return ItemRef{ProductID: &id} }

func ComboRef(id uuid.UUID) ItemRef { return ItemRef{ComboID: &id} }

// Validate returns ErrInvalidReference unless exactly one side is set.
func (r ItemRef) Validate() error {
	hasProduct := r.ProductID != nil && *r.ProductID != uuid.Nil
	hasCombo := r.ComboID != nil && *r.ComboID != uuid.Nil
	if hasProduct == hasCombo {
		return ErrInvalidReference
	}
	return nil
}

func (r ItemRef) IsProduct() bool { return r.ProductID != nil }

func (r ItemRef) IsCombo() bool { return r.ComboID != nil }

// Same reports whether both refs point at the same product or combo.
func (r ItemRef) Same(other ItemRef) bool {
	if r.ProductID != nil && other.ProductID != nil {
		return *r.ProductID == *other.ProductID
	}
	if r.ComboID != nil && other.ComboID != nil {
		return *r.ComboID == *other.ComboID
	}
	return false
}

// CartItem is one line of an identity's cart
type CartItem struct {
	ID     uuid.UUID `json:"id" db:"id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	ItemRef
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item resolved against the current catalog.
type CartLine struct {
	Item      CartItem        `json:"item"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartSnapshot is the cart as priced at one point in time. Checkout turns it
// into order items and a frozen total.
type CartSnapshot struct {
	UserID     uuid.UUID       `json:"user_id"`
	Lines      []CartLine      `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemCount  int             `json:"item_count"`
	CapturedAt time.Time       `json:"captured_at"`
}

// NewCartSnapshot totals lines into a snapshot.
func NewCartSnapshot(userID uuid.UUID, lines []CartLine, at time.Time) *CartSnapshot {
	snap := &CartSnapshot{
		UserID:     userID,
		Lines:      lines,
		Subtotal:   decimal.Zero,
		CapturedAt: at,
	}
	for _, line := range lines {
		snap.Subtotal = snap.Subtotal.Add(line.LineTotal)
		snap.ItemCount += line.Item.Quantity
	}
	return snap
}

func (s *CartSnapshot) IsEmpty() bool {
	return s == nil || len(s.Lines) == 0
}
