package memory

import (
	"context"
	"fmt"
	"sort"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
)

type cartRepository struct {
	sess *session
}

// Create enforces one line per (user, product) and per (user, combo)
func (r *cartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.cart[item.ID]; ok {
			return fmt.Errorf("failed to create cart item: duplicate id %s", item.ID)
		}
		if item.ProductID != nil {
			if _, ok := d.products[*item.ProductID]; !ok {
				return fmt.Errorf("failed to create cart item: %w", repository.ErrProductNotFound)
			}
		}
		if item.ComboID != nil {
			if _, ok := d.combos[*item.ComboID]; !ok {
				return fmt.Errorf("failed to create cart item: %w", repository.ErrComboNotFound)
			}
		}
		for _, existing := range d.cart {
			if existing.UserID == item.UserID && existing.ItemRef.Same(item.ItemRef) {
				return repository.ErrCartItemExists
			}
		}
		d.cart[item.ID] = cloneCartItem(item)
		return nil
	})
}

func (r *cartRepository) Update(ctx context.Context, item *domain.CartItem) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.cart[item.ID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		existing.Quantity = item.Quantity
		existing.UpdatedAt = item.UpdatedAt
		return nil
	})
}

func (r *cartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.cart[id]; !ok {
			return repository.ErrCartItemNotFound
		}
		delete(d.cart, id)
		return nil
	})
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error) {
	var item *domain.CartItem
	err := r.sess.read(ctx, func(d *dataset) error {
		existing, ok := d.cart[id]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		item = cloneCartItem(existing)
		return nil
	})
	return item, err
}

func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	items := []*domain.CartItem{}
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, item := range d.cart {
			if item.UserID == userID {
				items = append(items, cloneCartItem(item))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items, nil
}

func (r *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.sess.write(ctx, func(d *dataset) error {
		for id, item := range d.cart {
			if item.UserID == userID {
				delete(d.cart, id)
			}
		}
		return nil
	})
}
