// Package memory is an in-process repository.Store used for local demo mode
// and for tests that do not need PostgreSQL.
package memory

import (
	"context"
	"sync"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
)

type dataset struct {
	products map[uuid.UUID]*domain.Product
	combos   map[uuid.UUID]*domain.Combo
	cart     map[uuid.UUID]*domain.CartItem
	orders   map[uuid.UUID]*domain.Order
	profiles map[uuid.UUID]*domain.Profile
	tokens   map[string]*domain.RefreshToken
}

func newDataset() *dataset {
	return &dataset{
		products: make(map[uuid.UUID]*domain.Product),
		combos:   make(map[uuid.UUID]*domain.Combo),
		cart:     make(map[uuid.UUID]*domain.CartItem),
		orders:   make(map[uuid.UUID]*domain.Order),
		profiles: make(map[uuid.UUID]*domain.Profile),
		tokens:   make(map[string]*domain.RefreshToken),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for id, p := range d.products {
		c.products[id] = cloneProduct(p)
	}
	for id, combo := range d.combos {
		c.combos[id] = cloneCombo(combo)
	}
	for id, item := range d.cart {
		c.cart[id] = cloneCartItem(item)
	}
	for id, order := range d.orders {
		c.orders[id] = cloneOrder(order)
	}
	for id, p := range d.profiles {
		cp := *p
		c.profiles[id] = &cp
	}
	for token, rt := range d.tokens {
		cp := *rt
		c.tokens[token] = &cp
	}
	return c
}

// Store keeps every collection in maps guarded by one RWMutex. WithinTx
// works on a private copy and swaps it in on success, so a failed
// transaction leaves no trace.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

// NewStore returns an empty in-memory store
func NewStore() *Store {
	return &Store{data: newDataset()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Products() repository.ProductRepository { return &productRepository{s.session()} }

func (s *Store) Combos() repository.ComboRepository { return &comboRepository{s.session()} }

func (s *Store) Cart() repository.CartRepository { return &cartRepository{s.session()} }

func (s *Store) Orders() repository.OrderRepository { return &orderRepository{s.session()} }

func (s *Store) Profiles() repository.ProfileRepository { return &profileRepository{s.session()} }

func (s *Store) RefreshTokens() repository.RefreshTokenRepository {
	return &refreshTokenRepository{s.session()}
}

// WithinTx holds the write lock for the whole callback. The callback must
// only use the Store it is handed.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&txStore{sess: &session{tx: work}}); err != nil {
		return err
	}

	s.data = work
	return nil
}

func (s *Store) session() *session {
	return &session{store: s}
}

// session routes repository calls either to the shared dataset under the
// store lock or to a transaction's private copy.
type session struct {
	store *Store
	tx    *dataset
}

func (s *session) read(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return fn(s.store.data)
}

// write callbacks must validate before they mutate; there is no rollback
// outside a transaction.
func (s *session) write(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.data)
}

type txStore struct {
	sess *session
}

func (t *txStore) Products() repository.ProductRepository { return &productRepository{t.sess} }

func (t *txStore) Combos() repository.ComboRepository { return &comboRepository{t.sess} }

func (t *txStore) Cart() repository.CartRepository { return &cartRepository{t.sess} }

func (t *txStore) Orders() repository.OrderRepository { return &orderRepository{t.sess} }

func (t *txStore) Profiles() repository.ProfileRepository { return &profileRepository{t.sess} }

func (t *txStore) RefreshTokens() repository.RefreshTokenRepository {
	return &refreshTokenRepository{t.sess}
}

// WithinTx joins the running transaction
func (t *txStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Images = append([]string(nil), p.Images...)
	if p.OfferPrice != nil {
		offer := *p.OfferPrice
		cp.OfferPrice = &offer
	}
	return &cp
}

func cloneCombo(c *domain.Combo) *domain.Combo {
	cp := *c
	cp.Items = append([]domain.ComboItem(nil), c.Items...)
	return &cp
}

func cloneCartItem(item *domain.CartItem) *domain.CartItem {
	cp := *item
	cp.ProductID = cloneUUID(item.ProductID)
	cp.ComboID = cloneUUID(item.ComboID)
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.ProductID = cloneUUID(item.ProductID)
		item.ComboID = cloneUUID(item.ComboID)
		cp.Items[i] = item
	}
	return &cp
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
