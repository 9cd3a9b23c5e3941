package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// FulfillmentSteps is the happy path in order.
var FulfillmentSteps = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusDelivered,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPacked,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// StepIndex is the position of s on the happy path, -1 if it is not on it.
func (s OrderStatus) StepIndex() int {
	for i, step := range FulfillmentSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo allows only the next happy-path step, or cancellation
// before the order ships. Skipping ahead is not allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusPacked || target == OrderStatusCancelled
	case OrderStatusPacked:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return false
}

// PaymentStatus is tracked independently of OrderStatus
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethodCOD is cash on delivery, the only supported method.
const PaymentMethodCOD = "cod"

// ShippingAddress is embedded in the order as a value
type ShippingAddress struct {
	FullName     string `json:"full_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
	AddressLine1 string `json:"address_line1" validate:"required,max=200"`
	AddressLine2 string `json:"address_line2,omitempty" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	Pincode      string `json:"pincode" validate:"required,numeric,len=6"`
}

// OrderItem is a priced line copied from the cart at checkout
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty" db:"product_id"`
	ComboID     *uuid.UUID      `json:"combo_id,omitempty" db:"combo_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Order is the durable record of a checkout. Only OrderStatus, PaymentStatus
// and UpdatedAt change after creation.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Items           []OrderItem     `json:"items" db:"-"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentStatus   PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	OrderStatus     OrderStatus     `json:"order_status" db:"order_status"`
	ShippingAddress ShippingAddress `json:"shipping_address" db:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// NewOrder prices a snapshot into a pending order. The total is computed
// here once and never again.
func NewOrder(orderNumber string, snapshot *CartSnapshot, address ShippingAddress, paymentMethod string, now time.Time) (*Order, error) {
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	order := &Order{
		ID:              uuid.New(),
		OrderNumber:     orderNumber,
		UserID:          snapshot.UserID,
		TotalAmount:     decimal.Zero,
		PaymentStatus:   PaymentStatusPending,
		PaymentMethod:   paymentMethod,
		OrderStatus:     OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, line := range snapshot.Lines {
		if line.Item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if err := line.Item.ItemRef.Validate(); err != nil {
			return nil, err
		}
		total := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Item.Quantity)))
		order.Items = append(order.Items, OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.Item.ProductID,
			ComboID:     line.Item.ComboID,
			ProductName: line.Name,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  total,
			CreatedAt:   now,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
	}

	return order, nil
}

// AdvanceTo moves the order to status or returns a *TransitionError.
func (o *Order) AdvanceTo(status OrderStatus, now time.Time) error {
	if !status.IsValid() || !o.OrderStatus.CanTransitionTo(status) {
		return &TransitionError{From: o.OrderStatus, To: status}
	}
	o.OrderStatus = status
	o.UpdatedAt = now
	return nil
}

// SetPaymentStatus records a payment status change.
func (o *Order) SetPaymentStatus(status PaymentStatus, now time.Time) error {
	if !status.IsValid() {
		return NewValidationError("payment_status", "unknown payment status")
	}
	o.PaymentStatus = status
	o.UpdatedAt = now
	return nil
}

// OrderFilter narrows order listings. Zero values are ignored.
type OrderFilter struct {
	UserID        *uuid.UUID
	Status        OrderStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
