package service

import (
	"context"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService defines the interface for product and combo business logic
type CatalogService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListCombos(ctx context.Context, activeOnly bool) ([]*domain.Combo, error)
	GetCombo(ctx context.Context, id uuid.UUID) (*domain.Combo, error)
	GetComboBySlug(ctx context.Context, slug string) (*domain.Combo, error)

	CreateProduct(ctx context.Context, actor *domain.Identity, product *domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor *domain.Identity, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor *domain.Identity, id uuid.UUID) error

	CreateCombo(ctx context.Context, actor *domain.Identity, combo *domain.Combo) (*domain.Combo, error)
	UpdateCombo(ctx context.Context, actor *domain.Identity, combo *domain.Combo) (*domain.Combo, error)
	SetComboItems(ctx context.Context, actor *domain.Identity, comboID uuid.UUID, items []domain.ComboItem) (*domain.Combo, error)
	RecomputeComboPrice(ctx context.Context, actor *domain.Identity, comboID uuid.UUID) (*domain.Combo, error)
	DeleteCombo(ctx context.Context, actor *domain.Identity, id uuid.UUID) error
}

type catalogService struct {
	store  repository.Store
	logger *zap.Logger
	clock  Clock
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(store repository.Store, logger *zap.Logger) CatalogService {
	return &catalogService{
		store:  store,
		logger: logger,
		clock:  systemClock,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.store.Products().Find(ctx, filter)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return product, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.store.Products().FindBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return product, nil
}

func (s *catalogService) ListCombos(ctx context.Context, activeOnly bool) ([]*domain.Combo, error) {
	combos, err := s.store.Combos().Find(ctx, activeOnly)
	if err != nil {
		return nil, storeErr("list combos", err)
	}
	return combos, nil
}

func (s *catalogService) GetCombo(ctx context.Context, id uuid.UUID) (*domain.Combo, error) {
	combo, err := s.store.Combos().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get combo", err)
	}
	return combo, nil
}

func (s *catalogService) GetComboBySlug(ctx context.Context, slug string) (*domain.Combo, error) {
	combo, err := s.store.Combos().FindBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get combo", err)
	}
	return combo, nil
}

// CreateProduct assigns the id and timestamps and stores a validated product
func (s *catalogService) CreateProduct(ctx context.Context, actor *domain.Identity, product *domain.Product) (*domain.Product, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	created := *product
	created.ID = uuid.New()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := s.store.Products().Create(ctx, &created); err != nil {
		return nil, storeErr("create product", err)
	}

	s.logger.Info("Product created", zap.String("product_id", created.ID.String()), zap.String("slug", created.Slug))
	return &created, nil
}

// UpdateProduct replaces the editable fields of a product. When the price a
// customer pays changes, every combo holding the product is re-priced in the
// same transaction.
func (s *catalogService) UpdateProduct(ctx context.Context, actor *domain.Identity, product *domain.Product) (*domain.Product, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	var updated domain.Product
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Products().FindByID(ctx, product.ID)
		if err != nil {
			return err
		}

		now := s.clock()
		updated = *product
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = now

		if err := tx.Products().Update(ctx, &updated); err != nil {
			return err
		}

		if existing.UnitPrice().Equal(updated.UnitPrice()) {
			return nil
		}

		combos, err := tx.Combos().FindByProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		for _, combo := range combos {
			if err := recomputeCombo(ctx, tx, combo, now); err != nil {
				return err
			}
		}
		if len(combos) > 0 {
			s.logger.Info("Recomputed combo prices after product price change",
				zap.String("product_id", product.ID.String()),
				zap.Int("combos", len(combos)),
			)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update product", err)
	}

	return &updated, nil
}

// DeleteProduct removes the product; combos holding it are re-priced
func (s *catalogService) DeleteProduct(ctx context.Context, actor *domain.Identity, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		combos, err := tx.Combos().FindByProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Products().Delete(ctx, id); err != nil {
			return err
		}

		now := s.clock()
		for _, combo := range combos {
			fresh, err := tx.Combos().FindByID(ctx, combo.ID)
			if err != nil {
				return err
			}
			if err := recomputeCombo(ctx, tx, fresh, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("delete product", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// CreateCombo stores a combo with its items; the original price is derived
// from the products, never taken from the caller.
func (s *catalogService) CreateCombo(ctx context.Context, actor *domain.Identity, combo *domain.Combo) (*domain.Combo, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := combo.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	created := *combo
	created.ID = uuid.New()
	created.CreatedAt = now
	created.UpdatedAt = now
	created.Items = newComboItems(created.ID, combo.Items, now)

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		price, err := comboOriginalPrice(ctx, tx, created.Items)
		if err != nil {
			return err
		}
		created.OriginalPrice = price
		return tx.Combos().Create(ctx, &created)
	})
	if err != nil {
		return nil, storeErr("create combo", err)
	}

	s.logger.Info("Combo created", zap.String("combo_id", created.ID.String()), zap.String("slug", created.Slug))
	return &created, nil
}

// UpdateCombo changes the combo's own fields; items are left as they are
func (s *catalogService) UpdateCombo(ctx context.Context, actor *domain.Identity, combo *domain.Combo) (*domain.Combo, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	check := *combo
	check.Items = nil
	if err := check.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Combo
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Combos().FindByID(ctx, combo.ID)
		if err != nil {
			return err
		}

		existing.Name = combo.Name
		existing.Slug = combo.Slug
		existing.Description = combo.Description
		existing.ImageURL = combo.ImageURL
		existing.ComboPrice = combo.ComboPrice
		existing.IsActive = combo.IsActive
		existing.UpdatedAt = s.clock()

		if err := tx.Combos().Update(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("update combo", err)
	}

	return updated, nil
}

// SetComboItems replaces the items of a combo and re-prices it
func (s *catalogService) SetComboItems(ctx context.Context, actor *domain.Identity, comboID uuid.UUID, items []domain.ComboItem) (*domain.Combo, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, domain.NewValidationError("items", "combo item quantity must be at least 1")
		}
	}

	var combo *domain.Combo
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Combos().FindByID(ctx, comboID)
		if err != nil {
			return err
		}

		now := s.clock()
		existing.Items = newComboItems(comboID, items, now)
		if err := tx.Combos().ReplaceItems(ctx, comboID, existing.Items); err != nil {
			return err
		}
		if err := recomputeCombo(ctx, tx, existing, now); err != nil {
			return err
		}
		combo = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("set combo items", err)
	}

	return combo, nil
}

func (s *catalogService) RecomputeComboPrice(ctx context.Context, actor *domain.Identity, comboID uuid.UUID) (*domain.Combo, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var combo *domain.Combo
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Combos().FindByID(ctx, comboID)
		if err != nil {
			return err
		}
		if err := recomputeCombo(ctx, tx, existing, s.clock()); err != nil {
			return err
		}
		combo = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("recompute combo price", err)
	}

	return combo, nil
}

func (s *catalogService) DeleteCombo(ctx context.Context, actor *domain.Identity, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.Combos().Delete(ctx, id); err != nil {
		return storeErr("delete combo", err)
	}

	s.logger.Info("Combo deleted", zap.String("combo_id", id.String()))
	return nil
}

func newComboItems(comboID uuid.UUID, items []domain.ComboItem, now time.Time) []domain.ComboItem {
	out := make([]domain.ComboItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ComboItem{
			ID:        uuid.New(),
			ComboID:   comboID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: now,
		})
	}
	return out
}

// comboOriginalPrice fails with ErrProductNotFound when an item points at a
// product that does not exist.
func comboOriginalPrice(ctx context.Context, tx repository.Store, items []domain.ComboItem) (decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := tx.Products().Find(ctx, domain.ProductFilter{IDs: ids})
	if err != nil {
		return decimal.Zero, err
	}

	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return decimal.Zero, repository.ErrProductNotFound
		}
	}

	return domain.ComboOriginalPrice(items, byID), nil
}

func recomputeCombo(ctx context.Context, tx repository.Store, combo *domain.Combo, now time.Time) error {
	price, err := comboOriginalPrice(ctx, tx, combo.Items)
	if err != nil {
		return err
	}
	combo.OriginalPrice = price
	combo.UpdatedAt = now
	return tx.Combos().Update(ctx, combo)
}
