package memory

import (
	"context"
	"fmt"
	"sort"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
)

type orderRepository struct {
	sess *session
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.orders[order.ID]; ok {
			return fmt.Errorf("failed to create order: duplicate id %s", order.ID)
		}
		for _, existing := range d.orders {
			if existing.OrderNumber == order.OrderNumber {
				return repository.ErrOrderNumberTaken
			}
		}
		stored := cloneOrder(order)
		for i := range stored.Items {
			stored.Items[i].OrderID = order.ID
		}
		d.orders[order.ID] = stored
		return nil
	})
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.orders[order.ID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		if existing.OrderStatus != from {
			return &domain.TransitionError{From: existing.OrderStatus, To: order.OrderStatus}
		}
		existing.OrderStatus = order.OrderStatus
		existing.UpdatedAt = order.UpdatedAt
		return nil
	})
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, order *domain.Order) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.orders[order.ID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		existing.PaymentStatus = order.PaymentStatus
		existing.UpdatedAt = order.UpdatedAt
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := r.sess.read(ctx, func(d *dataset) error {
		existing, ok := d.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		order = cloneOrder(existing)
		return nil
	})
	return order, err
}

func (r *orderRepository) FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order *domain.Order
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, existing := range d.orders {
			if existing.OrderNumber == orderNumber {
				order = cloneOrder(existing)
				return nil
			}
		}
		return repository.ErrOrderNotFound
	})
	return order, err
}

func (r *orderRepository) Find(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, order := range d.orders {
			if matchOrder(order, filter) {
				orders = append(orders, cloneOrder(order))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderNumber > orders[j].OrderNumber
	})
	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int, error) {
	var total int
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, order := range d.orders {
			if matchOrder(order, filter) {
				total++
			}
		}
		return nil
	})
	return total, err
}

func matchOrder(o *domain.Order, f domain.OrderFilter) bool {
	switch {
	case f.UserID != nil && o.UserID != *f.UserID:
		return false
	case f.Status != "" && o.OrderStatus != f.Status:
		return false
	case f.CreatedAfter != nil && o.CreatedAt.Before(*f.CreatedAfter):
		return false
	case f.CreatedBefore != nil && !o.CreatedAt.Before(*f.CreatedBefore):
		return false
	}
	return true
}
