package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
)

type productRepository struct {
	sess *session
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.products[product.ID]; ok {
			return fmt.Errorf("failed to create product: duplicate id %s", product.ID)
		}
		if productSlugTaken(d, product.Slug, product.ID) {
			return repository.ErrSlugTaken
		}
		d.products[product.ID] = cloneProduct(product)
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.products[product.ID]
		if !ok {
			return repository.ErrProductNotFound
		}
		if productSlugTaken(d, product.Slug, product.ID) {
			return repository.ErrSlugTaken
		}
		updated := cloneProduct(product)
		updated.CreatedAt = existing.CreatedAt
		d.products[product.ID] = updated
		return nil
	})
}

// Delete mirrors the PostgreSQL cascades: cart lines and combo items go,
// order items keep their copy with the product reference cleared.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.products[id]; !ok {
			return repository.ErrProductNotFound
		}
		delete(d.products, id)

		for itemID, item := range d.cart {
			if item.ProductID != nil && *item.ProductID == id {
				delete(d.cart, itemID)
			}
		}
		for _, combo := range d.combos {
			kept := combo.Items[:0]
			for _, item := range combo.Items {
				if item.ProductID != id {
					kept = append(kept, item)
				}
			}
			combo.Items = kept
		}
		for _, order := range d.orders {
			for i := range order.Items {
				if order.Items[i].ProductID != nil && *order.Items[i].ProductID == id {
					order.Items[i].ProductID = nil
				}
			}
		}
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product *domain.Product
	err := r.sess.read(ctx, func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		product = cloneProduct(p)
		return nil
	})
	return product, err
}

func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var product *domain.Product
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, p := range d.products {
			if p.Slug == slug {
				product = cloneProduct(p)
				return nil
			}
		}
		return repository.ErrProductNotFound
	})
	return product, err
}

func (r *productRepository) Find(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products := []*domain.Product{}
	err := r.sess.read(ctx, func(d *dataset) error {
		var ids map[uuid.UUID]bool
		if filter.IDs != nil {
			ids = make(map[uuid.UUID]bool, len(filter.IDs))
			for _, id := range filter.IDs {
				ids[id] = true
			}
		}
		search := strings.ToLower(strings.TrimSpace(filter.Search))

		for _, p := range d.products {
			if !matchProduct(p, filter, ids, search) {
				continue
			}
			products = append(products, cloneProduct(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.sess.read(ctx, func(d *dataset) error {
		total = len(d.products)
		return nil
	})
	return total, err
}

func matchProduct(p *domain.Product, f domain.ProductFilter, ids map[uuid.UUID]bool, search string) bool {
	switch {
	case f.Category != "" && p.Category != f.Category:
		return false
	case f.SubCategory != "" && p.SubCategory != f.SubCategory:
		return false
	case f.IsOffer != nil && p.IsOffer != *f.IsOffer:
		return false
	case f.IsNewArrival != nil && p.IsNewArrival != *f.IsNewArrival:
		return false
	case f.IsFeatured != nil && p.IsFeatured != *f.IsFeatured:
		return false
	case f.ActiveOnly && !p.IsActive:
		return false
	case ids != nil && !ids[p.ID]:
		return false
	}
	if search != "" {
		return strings.Contains(strings.ToLower(p.Name), search) ||
			strings.Contains(strings.ToLower(p.ShortDescription), search)
	}
	return true
}

func productSlugTaken(d *dataset, slug string, self uuid.UUID) bool {
	for id, p := range d.products {
		if id != self && p.Slug == slug {
			return true
		}
	}
	return false
}

type comboRepository struct {
	sess *session
}

func (r *comboRepository) Create(ctx context.Context, combo *domain.Combo) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.combos[combo.ID]; ok {
			return fmt.Errorf("failed to create combo: duplicate id %s", combo.ID)
		}
		if comboSlugTaken(d, combo.Slug, combo.ID) {
			return repository.ErrSlugTaken
		}
		items, err := comboItems(d, combo.ID, combo.Items)
		if err != nil {
			return err
		}
		stored := cloneCombo(combo)
		stored.Items = items
		d.combos[combo.ID] = stored
		return nil
	})
}

// Update leaves the stored items alone, like the SQL store
func (r *comboRepository) Update(ctx context.Context, combo *domain.Combo) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.combos[combo.ID]
		if !ok {
			return repository.ErrComboNotFound
		}
		if comboSlugTaken(d, combo.Slug, combo.ID) {
			return repository.ErrSlugTaken
		}
		updated := cloneCombo(combo)
		updated.Items = existing.Items
		updated.CreatedAt = existing.CreatedAt
		d.combos[combo.ID] = updated
		return nil
	})
}

func (r *comboRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.combos[id]; !ok {
			return repository.ErrComboNotFound
		}
		delete(d.combos, id)

		for itemID, item := range d.cart {
			if item.ComboID != nil && *item.ComboID == id {
				delete(d.cart, itemID)
			}
		}
		for _, order := range d.orders {
			for i := range order.Items {
				if order.Items[i].ComboID != nil && *order.Items[i].ComboID == id {
					order.Items[i].ComboID = nil
				}
			}
		}
		return nil
	})
}

func (r *comboRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Combo, error) {
	var combo *domain.Combo
	err := r.sess.read(ctx, func(d *dataset) error {
		c, ok := d.combos[id]
		if !ok {
			return repository.ErrComboNotFound
		}
		combo = cloneCombo(c)
		return nil
	})
	return combo, err
}

func (r *comboRepository) FindBySlug(ctx context.Context, slug string) (*domain.Combo, error) {
	var combo *domain.Combo
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, c := range d.combos {
			if c.Slug == slug {
				combo = cloneCombo(c)
				return nil
			}
		}
		return repository.ErrComboNotFound
	})
	return combo, err
}

func (r *comboRepository) Find(ctx context.Context, activeOnly bool) ([]*domain.Combo, error) {
	return r.collect(ctx, func(c *domain.Combo) bool {
		return !activeOnly || c.IsActive
	})
}

func (r *comboRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Combo, error) {
	return r.collect(ctx, func(c *domain.Combo) bool {
		for _, item := range c.Items {
			if item.ProductID == productID {
				return true
			}
		}
		return false
	})
}

func (r *comboRepository) ReplaceItems(ctx context.Context, comboID uuid.UUID, items []domain.ComboItem) error {
	return r.sess.write(ctx, func(d *dataset) error {
		combo, ok := d.combos[comboID]
		if !ok {
			return repository.ErrComboNotFound
		}
		stored, err := comboItems(d, comboID, items)
		if err != nil {
			return err
		}
		combo.Items = stored
		return nil
	})
}

func (r *comboRepository) collect(ctx context.Context, keep func(*domain.Combo) bool) ([]*domain.Combo, error) {
	combos := []*domain.Combo{}
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, c := range d.combos {
			if keep(c) {
				combos = append(combos, cloneCombo(c))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(combos, func(i, j int) bool {
		if !combos[i].CreatedAt.Equal(combos[j].CreatedAt) {
			return combos[i].CreatedAt.After(combos[j].CreatedAt)
		}
		return combos[i].Name < combos[j].Name
	})
	return combos, nil
}

// comboItems checks product references and returns the items in storage order
func comboItems(d *dataset, comboID uuid.UUID, items []domain.ComboItem) ([]domain.ComboItem, error) {
	stored := make([]domain.ComboItem, 0, len(items))
	for _, item := range items {
		if _, ok := d.products[item.ProductID]; !ok {
			return nil, fmt.Errorf("failed to create combo item: %w", repository.ErrProductNotFound)
		}
		item.ComboID = comboID
		stored = append(stored, item)
	}

	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].CreatedAt.Before(stored[j].CreatedAt)
		}
		return stored[i].ID.String() < stored[j].ID.String()
	})
	return stored, nil
}

func comboSlugTaken(d *dataset, slug string, self uuid.UUID) bool {
	for id, c := range d.combos {
		if id != self && c.Slug == slug {
			return true
		}
	}
	return false
}
