package service

import (
	"context"
	"errors"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/metrics"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic. Every call
// acts on the cart of the identity passed in; nil means nobody is signed in.
type CartService interface {
	AddItem(ctx context.Context, identity *domain.Identity, ref domain.ItemRef, quantity int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, identity *domain.Identity, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, identity *domain.Identity, itemID uuid.UUID) error
	Clear(ctx context.Context, identity *domain.Identity) error
	Items(ctx context.Context, identity *domain.Identity) ([]domain.CartLine, error)
	Count(ctx context.Context, identity *domain.Identity) (int, error)
	Subtotal(ctx context.Context, identity *domain.Identity) (decimal.Decimal, error)
	Snapshot(ctx context.Context, identity *domain.Identity) (*domain.CartSnapshot, error)
}

type cartService struct {
	store   repository.Store
	locks   *IdentityLocks
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   Clock
}

// NewCartService creates a new instance of CartService. locks must be the
// same value the order service uses so checkout and cart edits serialize.
func NewCartService(store repository.Store, locks *IdentityLocks, m *metrics.Metrics, logger *zap.Logger) CartService {
	return &cartService{
		store:   store,
		locks:   locks,
		metrics: m,
		logger:  logger,
		clock:   systemClock,
	}
}

// AddItem merges into the existing line for ref, or starts a new one
func (s *cartService) AddItem(ctx context.Context, identity *domain.Identity, ref domain.ItemRef, quantity int) (*domain.CartItem, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	item, err := s.addItem(ctx, identity.ID, ref, quantity)
	if errors.Is(err, repository.ErrCartItemExists) {
		// another process inserted the same line first; merge into it
		s.logger.Debug("Cart line appeared concurrently, retrying as merge",
			zap.String("user_id", identity.ID.String()),
		)
		item, err = s.addItem(ctx, identity.ID, ref, quantity)
	}
	if err != nil {
		return nil, storeErr("add cart item", err)
	}

	s.metrics.CartMutation("add")
	return item, nil
}

func (s *cartService) addItem(ctx context.Context, userID uuid.UUID, ref domain.ItemRef, quantity int) (*domain.CartItem, error) {
	var result *domain.CartItem
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := requireSellable(ctx, tx, ref); err != nil {
			return err
		}

		items, err := tx.Cart().FindByUser(ctx, userID)
		if err != nil {
			return err
		}

		now := s.clock()
		for _, item := range items {
			if item.ItemRef.Same(ref) {
				item.Quantity += quantity
				item.UpdatedAt = now
				if err := tx.Cart().Update(ctx, item); err != nil {
					return err
				}
				result = item
				return nil
			}
		}

		item := &domain.CartItem{
			ID:        uuid.New(),
			UserID:    userID,
			ItemRef:   ref,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Cart().Create(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	return result, err
}

// requireSellable checks that ref points at an existing, active product or combo
func requireSellable(ctx context.Context, tx repository.Store, ref domain.ItemRef) error {
	if ref.IsProduct() {
		product, err := tx.Products().FindByID(ctx, *ref.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return repository.ErrProductNotFound
		}
		return nil
	}

	combo, err := tx.Combos().FindByID(ctx, *ref.ComboID)
	if err != nil {
		return err
	}
	if !combo.IsActive {
		return repository.ErrComboNotFound
	}
	return nil
}

// SetQuantity removes the line when quantity is zero or less and then
// returns a nil item.
func (s *cartService) SetQuantity(ctx context.Context, identity *domain.Identity, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, s.RemoveItem(ctx, identity, itemID)
	}
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	var result *domain.CartItem
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		item, err := ownedCartItem(ctx, tx, identity.ID, itemID)
		if err != nil {
			return err
		}
		item.Quantity = quantity
		item.UpdatedAt = s.clock()
		if err := tx.Cart().Update(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, storeErr("set cart quantity", err)
	}

	s.metrics.CartMutation("set_quantity")
	return result, nil
}

func (s *cartService) RemoveItem(ctx context.Context, identity *domain.Identity, itemID uuid.UUID) error {
	if err := domain.RequireIdentity(identity); err != nil {
		return err
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := ownedCartItem(ctx, tx, identity.ID, itemID); err != nil {
			return err
		}
		return tx.Cart().Delete(ctx, itemID)
	})
	if err != nil {
		return storeErr("remove cart item", err)
	}

	s.metrics.CartMutation("remove")
	return nil
}

// ownedCartItem hides other identities' lines behind ErrCartItemNotFound
func ownedCartItem(ctx context.Context, tx repository.Store, userID, itemID uuid.UUID) (*domain.CartItem, error) {
	item, err := tx.Cart().FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, repository.ErrCartItemNotFound
	}
	return item, nil
}

func (s *cartService) Clear(ctx context.Context, identity *domain.Identity) error {
	if err := domain.RequireIdentity(identity); err != nil {
		return err
	}

	unlock := s.locks.Lock(identity.ID)
	defer unlock()

	if err := s.store.Cart().DeleteByUser(ctx, identity.ID); err != nil {
		return storeErr("clear cart", err)
	}

	s.metrics.CartMutation("clear")
	return nil
}

func (s *cartService) Items(ctx context.Context, identity *domain.Identity) ([]domain.CartLine, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	lines, err := resolveCart(ctx, s.store, identity.ID)
	if err != nil {
		return nil, storeErr("list cart items", err)
	}
	return lines, nil
}

// Count is the sum of quantities over the lines Items would show, not the
// number of lines
func (s *cartService) Count(ctx context.Context, identity *domain.Identity) (int, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return 0, err
	}

	lines, err := resolveCart(ctx, s.store, identity.ID)
	if err != nil {
		return 0, storeErr("count cart items", err)
	}

	count := 0
	for _, line := range lines {
		count += line.Item.Quantity
	}
	return count, nil
}

// Subtotal prices the cart against the current catalog on every call
func (s *cartService) Subtotal(ctx context.Context, identity *domain.Identity) (decimal.Decimal, error) {
	snapshot, err := s.Snapshot(ctx, identity)
	if err != nil {
		return decimal.Zero, err
	}
	return snapshot.Subtotal, nil
}

func (s *cartService) Snapshot(ctx context.Context, identity *domain.Identity) (*domain.CartSnapshot, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	snapshot, err := snapshotCart(ctx, s.store, identity.ID, s.clock())
	if err != nil {
		return nil, storeErr("snapshot cart", err)
	}
	return snapshot, nil
}

func snapshotCart(ctx context.Context, store repository.Store, userID uuid.UUID, now time.Time) (*domain.CartSnapshot, error) {
	lines, err := resolveCart(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	return domain.NewCartSnapshot(userID, lines, now), nil
}

// resolveCart joins cart items with the live catalog. Lines whose product or
// combo has vanished or been deactivated are skipped, so checkout never
// orders something the storefront no longer sells. The rows stay in the
// cart and reappear if the item is reactivated.
func resolveCart(ctx context.Context, store repository.Store, userID uuid.UUID) ([]domain.CartLine, error) {
	items, err := store.Cart().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var productIDs []uuid.UUID
	for _, item := range items {
		if item.IsProduct() {
			productIDs = append(productIDs, *item.ProductID)
		}
	}

	products := make(map[uuid.UUID]*domain.Product, len(productIDs))
	if len(productIDs) > 0 {
		found, err := store.Products().Find(ctx, domain.ProductFilter{IDs: productIDs, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			products[p.ID] = p
		}
	}

	combos := make(map[uuid.UUID]*domain.Combo)
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		line := domain.CartLine{Item: *item}

		switch {
		case item.IsProduct():
			p, ok := products[*item.ProductID]
			if !ok {
				continue
			}
			line.Name = p.Name
			line.Slug = p.Slug
			line.ImageURL = p.MainImage()
			line.UnitPrice = p.UnitPrice()

		case item.IsCombo():
			c, ok := combos[*item.ComboID]
			if !ok {
				c, err = store.Combos().FindByID(ctx, *item.ComboID)
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				combos[c.ID] = c
			}
			if !c.IsActive {
				continue
			}
			line.Name = c.Name
			line.Slug = c.Slug
			line.ImageURL = c.ImageURL
			line.UnitPrice = c.ComboPrice

		default:
			continue
		}

		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, line)
	}

	return lines, nil
}
