package service

import (
	"context"

	"mansara-store/internal/domain"
	"mansara-store/internal/metrics"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the interface for checkout and order lifecycle logic
type OrderService interface {
	PlaceOrder(ctx context.Context, identity *domain.Identity, snapshot *domain.CartSnapshot, address domain.ShippingAddress, paymentMethod string) (*domain.Order, error)
	Checkout(ctx context.Context, identity *domain.Identity, address domain.ShippingAddress, paymentMethod string) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, actor *domain.Identity, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, actor *domain.Identity, orderID uuid.UUID, status domain.PaymentStatus) (*domain.Order, error)
	GetByID(ctx context.Context, identity *domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, identity *domain.Identity, orderNumber string) (*domain.Order, error)
	ListForUser(ctx context.Context, identity *domain.Identity) ([]*domain.Order, error)
	Tracking(ctx context.Context, identity *domain.Identity, orderNumber string) (domain.Tracking, error)
}

type orderService struct {
	store   repository.Store
	locks   *IdentityLocks
	numbers *OrderNumbers
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   Clock
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store repository.Store, locks *IdentityLocks, numbers *OrderNumbers, m *metrics.Metrics, logger *zap.Logger) OrderService {
	return &orderService{
		store:   store,
		locks:   locks,
		numbers: numbers,
		metrics: m,
		logger:  logger,
		clock:   systemClock,
	}
}

// PlaceOrder turns a priced snapshot into a pending order and empties the
// cart. Both writes commit together or not at all.
func (s *orderService) PlaceOrder(ctx context.Context, identity *domain.Identity, snapshot *domain.CartSnapshot, address domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	return s.placeOrder(ctx, identity, snapshot, address, paymentMethod)
}

// Checkout snapshots the cart and places the order under one identity lock
func (s *orderService) Checkout(ctx context.Context, identity *domain.Identity, address domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	snapshot, err := snapshotCart(ctx, s.store, identity.ID, s.clock())
	if err != nil {
		return nil, storeErr("snapshot cart", err)
	}

	return s.placeOrder(ctx, identity, snapshot, address, paymentMethod)
}

func (s *orderService) placeOrder(ctx context.Context, identity *domain.Identity, snapshot *domain.CartSnapshot, address domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	if snapshot.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	if snapshot.UserID != identity.ID {
		return nil, domain.ErrForbidden
	}
	if err := validateStruct(address); err != nil {
		return nil, err
	}
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCOD
	}
	if paymentMethod != domain.PaymentMethodCOD {
		return nil, domain.NewValidationError("payment_method", "only cash on delivery is supported")
	}

	order, err := domain.NewOrder(s.numbers.Next(), snapshot, address, paymentMethod, s.clock())
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Cart().DeleteByUser(ctx, identity.ID)
	})
	if err != nil {
		s.logger.Error("Failed to place order",
			zap.String("user_id", identity.ID.String()),
			zap.Error(err),
		)
		return nil, storeErr("place order", err)
	}

	total, _ := order.TotalAmount.Float64()
	s.metrics.OrderPlaced(total)
	s.logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", identity.ID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

// AdvanceStatus moves an order along the fulfillment path; admins only
func (s *orderService) AdvanceStatus(ctx context.Context, actor *domain.Identity, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var order *domain.Order
	var from domain.OrderStatus
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = existing.OrderStatus
		if err := existing.AdvanceTo(status, s.clock()); err != nil {
			return err
		}
		if err := tx.Orders().UpdateStatus(ctx, existing, from); err != nil {
			return err
		}
		order = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("advance order status", err)
	}

	s.metrics.OrderTransition(string(status))
	s.logger.Info("Order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)

	return order, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, actor *domain.Identity, orderID uuid.UUID, status domain.PaymentStatus) (*domain.Order, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := existing.SetPaymentStatus(status, s.clock()); err != nil {
			return err
		}
		if err := tx.Orders().UpdatePaymentStatus(ctx, existing); err != nil {
			return err
		}
		order = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("update payment status", err)
	}

	s.logger.Info("Payment status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_status", string(status)),
	)
	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, identity *domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return visibleOrder(identity, order)
}

func (s *orderService) GetByNumber(ctx context.Context, identity *domain.Identity, orderNumber string) (*domain.Order, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	order, err := s.store.Orders().FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return visibleOrder(identity, order)
}

// visibleOrder reports a foreign order as missing rather than forbidden so
// order numbers cannot be probed.
func visibleOrder(identity *domain.Identity, order *domain.Order) (*domain.Order, error) {
	if !identity.CanAccess(order.UserID) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// ListForUser returns the identity's orders, newest first
func (s *orderService) ListForUser(ctx context.Context, identity *domain.Identity) ([]*domain.Order, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	orders, err := s.store.Orders().Find(ctx, domain.OrderFilter{UserID: &identity.ID})
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

func (s *orderService) Tracking(ctx context.Context, identity *domain.Identity, orderNumber string) (domain.Tracking, error) {
	order, err := s.GetByNumber(ctx, identity, orderNumber)
	if err != nil {
		return domain.Tracking{}, err
	}
	return domain.Track(order), nil
}
