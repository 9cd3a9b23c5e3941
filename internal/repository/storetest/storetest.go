// Package storetest is the behavioural suite every repository.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the suite. newStore may hand back the same database for
// every call; the tests only rely on rows they created themselves.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("ProductFilter", func(t *testing.T) { testProductFilter(t, newStore(t)) })
	t.Run("Combos", func(t *testing.T) { testCombos(t, newStore(t)) })
	t.Run("CartUniqueReference", func(t *testing.T) { testCartUniqueReference(t, newStore(t)) })
	t.Run("CartLifecycle", func(t *testing.T) { testCartLifecycle(t, newStore(t)) })
	t.Run("ProductDeleteCascades", func(t *testing.T) { testProductDeleteCascades(t, newStore(t)) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("OrderStatusRace", func(t *testing.T) { testOrderStatusRace(t, newStore(t)) })
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

// Now is truncated to what TIMESTAMPTZ keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewProduct returns a valid active product with a unique slug.
func NewProduct(name string, price int64) *domain.Product {
	now := Now()
	return &domain.Product{
		ID:             uuid.New(),
		Name:           name,
		Slug:           "product-" + uuid.NewString(),
		Category:       "Ready Mixes",
		Price:          decimal.NewFromInt(price),
		StockQuantity:  10,
		Images:         []string{"https://img.example/" + uuid.NewString() + ".jpg"},
		MainImageIndex: 0,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewCombo returns an active combo holding the given products once each.
func NewCombo(name string, price int64, products ...*domain.Product) *domain.Combo {
	now := Now()
	combo := &domain.Combo{
		ID:         uuid.New(),
		Name:       name,
		Slug:       "combo-" + uuid.NewString(),
		ComboPrice: decimal.NewFromInt(price),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, p := range products {
		combo.Items = append(combo.Items, domain.ComboItem{
			ID:        uuid.New(),
			ComboID:   combo.ID,
			ProductID: p.ID,
			Quantity:  1,
			CreatedAt: now,
		})
	}
	combo.OriginalPrice = decimal.Zero
	for _, p := range products {
		combo.OriginalPrice = combo.OriginalPrice.Add(p.UnitPrice())
	}
	return combo
}

// NewProfile returns a customer profile with a unique email.
func NewProfile() *domain.Profile {
	now := Now()
	return &domain.Profile{
		ID:           uuid.New(),
		Email:        "customer-" + uuid.NewString() + "@example.com",
		PasswordHash: "$2a$10$hash",
		FullName:     "Test Customer",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func mustCreateProfile(t *testing.T, store repository.Store) *domain.Profile {
	t.Helper()
	profile := NewProfile()
	require.NoError(t, store.Profiles().Create(context.Background(), profile))
	return profile
}

func mustCreateProduct(t *testing.T, store repository.Store, name string, price int64) *domain.Product {
	t.Helper()
	product := NewProduct(name, price)
	require.NoError(t, store.Products().Create(context.Background(), product))
	return product
}

func newCartItem(userID uuid.UUID, ref domain.ItemRef, qty int, at time.Time) *domain.CartItem {
	return &domain.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ItemRef:   ref,
		Quantity:  qty,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func testProducts(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Products()

	before, err := repo.Count(ctx)
	require.NoError(t, err)

	product := NewProduct("Ragi Malt", 150)
	offer := decimal.NewFromInt(120)
	product.OfferPrice = &offer
	product.Images = []string{"a.jpg", "b.jpg"}
	product.MainImageIndex = 1
	require.NoError(t, repo.Create(ctx, product))

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	got, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, got.Name)
	assert.Equal(t, product.Slug, got.Slug)
	assert.True(t, product.Price.Equal(got.Price))
	require.NotNil(t, got.OfferPrice)
	assert.True(t, offer.Equal(*got.OfferPrice))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.Images)
	assert.Equal(t, "b.jpg", got.MainImage())
	assert.True(t, product.CreatedAt.Equal(got.CreatedAt))

	bySlug, err := repo.FindBySlug(ctx, product.Slug)
	require.NoError(t, err)
	assert.Equal(t, product.ID, bySlug.ID)

	duplicate := NewProduct("Copy", 10)
	duplicate.Slug = product.Slug
	assert.ErrorIs(t, repo.Create(ctx, duplicate), repository.ErrSlugTaken)

	got.Price = decimal.NewFromInt(160)
	got.OfferPrice = nil
	got.UpdatedAt = Now()
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(160).Equal(updated.Price))
	assert.Nil(t, updated.OfferPrice)

	missing := NewProduct("Ghost", 1)
	assert.ErrorIs(t, repo.Update(ctx, missing), repository.ErrProductNotFound)

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, product.ID), repository.ErrProductNotFound)
}

func testProductFilter(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Products()

	mix := NewProduct("Sprouted Ragi Mix", 150)
	mix.Category = "Health Mixes"
	mix.IsFeatured = true
	mix.ShortDescription = "Stone ground finger millet"
	noodles := NewProduct("Millet Noodles", 80)
	noodles.Category = "Noodles"
	noodles.IsNewArrival = true
	hidden := NewProduct("Old Mix", 90)
	hidden.Category = "Health Mixes"
	hidden.IsActive = false

	for _, p := range []*domain.Product{mix, noodles, hidden} {
		require.NoError(t, repo.Create(ctx, p))
	}
	scope := []uuid.UUID{mix.ID, noodles.ID, hidden.ID}

	ids := func(products []*domain.Product) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(products))
		for _, p := range products {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := repo.Find(ctx, domain.ProductFilter{IDs: scope})
	require.NoError(t, err)
	assert.ElementsMatch(t, scope, ids(all))

	active, err := repo.Find(ctx, domain.ProductFilter{IDs: scope, ActiveOnly: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{mix.ID, noodles.ID}, ids(active))

	category, err := repo.Find(ctx, domain.ProductFilter{IDs: scope, Category: "Health Mixes"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{mix.ID, hidden.ID}, ids(category))

	featured := true
	flagged, err := repo.Find(ctx, domain.ProductFilter{IDs: scope, IsFeatured: &featured})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mix.ID}, ids(flagged))

	search, err := repo.Find(ctx, domain.ProductFilter{IDs: scope, Search: "FINGER"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mix.ID}, ids(search))

	none, err := repo.Find(ctx, domain.ProductFilter{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCombos(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Combos()

	a := mustCreateProduct(t, store, "Ragi Malt", 150)
	b := mustCreateProduct(t, store, "Jowar Flakes", 200)
	c := mustCreateProduct(t, store, "Bajra Cookies", 120)

	combo := NewCombo("Breakfast Box", 300, a, b)
	require.NoError(t, repo.Create(ctx, combo))

	got, err := repo.FindByID(ctx, combo.ID)
	require.NoError(t, err)
	assert.Equal(t, combo.Name, got.Name)
	assert.True(t, decimal.NewFromInt(350).Equal(got.OriginalPrice))
	require.Len(t, got.Items, 2)
	for _, item := range got.Items {
		assert.Equal(t, combo.ID, item.ComboID)
	}

	bySlug, err := repo.FindBySlug(ctx, combo.Slug)
	require.NoError(t, err)
	assert.Equal(t, combo.ID, bySlug.ID)
	assert.Len(t, bySlug.Items, 2)

	withA, err := repo.FindByProduct(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, withA, 1)
	assert.Equal(t, combo.ID, withA[0].ID)

	now := Now()
	require.NoError(t, repo.ReplaceItems(ctx, combo.ID, []domain.ComboItem{
		{ID: uuid.New(), ComboID: combo.ID, ProductID: c.ID, Quantity: 3, CreatedAt: now},
	}))

	replaced, err := repo.FindByID(ctx, combo.ID)
	require.NoError(t, err)
	require.Len(t, replaced.Items, 1)
	assert.Equal(t, c.ID, replaced.Items[0].ProductID)
	assert.Equal(t, 3, replaced.Items[0].Quantity)

	withA, err = repo.FindByProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, withA)

	replaced.IsActive = false
	replaced.OriginalPrice = decimal.NewFromInt(360)
	replaced.UpdatedAt = Now()
	require.NoError(t, repo.Update(ctx, replaced))

	updated, err := repo.FindByID(ctx, combo.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, decimal.NewFromInt(360).Equal(updated.OriginalPrice))
	assert.Len(t, updated.Items, 1)

	active, err := repo.Find(ctx, true)
	require.NoError(t, err)
	for _, listed := range active {
		assert.NotEqual(t, combo.ID, listed.ID)
	}

	require.NoError(t, repo.Delete(ctx, combo.ID))
	_, err = repo.FindByID(ctx, combo.ID)
	assert.ErrorIs(t, err, repository.ErrComboNotFound)
}

func testCartUniqueReference(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Cart()

	user := mustCreateProfile(t, store)
	product := mustCreateProduct(t, store, "Ragi Malt", 150)
	combo := NewCombo("Box", 300, product)
	require.NoError(t, store.Combos().Create(ctx, combo))

	now := Now()
	require.NoError(t, repo.Create(ctx, newCartItem(user.ID, domain.ProductRef(product.ID), 1, now)))
	require.NoError(t, repo.Create(ctx, newCartItem(user.ID, domain.ComboRef(combo.ID), 1, now)))

	err := repo.Create(ctx, newCartItem(user.ID, domain.ProductRef(product.ID), 2, now))
	assert.ErrorIs(t, err, repository.ErrCartItemExists)
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = repo.Create(ctx, newCartItem(user.ID, domain.ComboRef(combo.ID), 2, now))
	assert.ErrorIs(t, err, repository.ErrCartItemExists)

	// another identity may hold the same product
	other := mustCreateProfile(t, store)
	require.NoError(t, repo.Create(ctx, newCartItem(other.ID, domain.ProductRef(product.ID), 1, now)))

	items, err := repo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func testCartLifecycle(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Cart()

	user := mustCreateProfile(t, store)
	first := mustCreateProduct(t, store, "Ragi Malt", 150)
	second := mustCreateProduct(t, store, "Millet Noodles", 80)

	now := Now()
	older := newCartItem(user.ID, domain.ProductRef(first.ID), 2, now)
	newer := newCartItem(user.ID, domain.ProductRef(second.ID), 1, now.Add(time.Second))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	items, err := repo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, older.ID, items[0].ID)
	assert.Equal(t, newer.ID, items[1].ID)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, first.ID, *items[0].ProductID)
	assert.Nil(t, items[0].ComboID)

	older.Quantity = 5
	older.UpdatedAt = now.Add(2 * time.Second)
	require.NoError(t, repo.Update(ctx, older))

	got, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	require.NoError(t, repo.Delete(ctx, newer.ID))
	assert.ErrorIs(t, repo.Delete(ctx, newer.ID), repository.ErrCartItemNotFound)
	assert.ErrorIs(t, repo.Update(ctx, newer), repository.ErrCartItemNotFound)

	require.NoError(t, repo.DeleteByUser(ctx, user.ID))
	items, err = repo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testProductDeleteCascades(t *testing.T, store repository.Store) {
	ctx := context.Background()

	user := mustCreateProfile(t, store)
	product := mustCreateProduct(t, store, "Ragi Malt", 150)
	keep := mustCreateProduct(t, store, "Jowar Flakes", 200)
	combo := NewCombo("Box", 300, product, keep)
	require.NoError(t, store.Combos().Create(ctx, combo))
	require.NoError(t, store.Cart().Create(ctx, newCartItem(user.ID, domain.ProductRef(product.ID), 1, Now())))

	order := newOrder(user.ID, product)
	require.NoError(t, store.Orders().Create(ctx, order))

	require.NoError(t, store.Products().Delete(ctx, product.ID))

	items, err := store.Cart().FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err := store.Combos().FindByID(ctx, combo.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, keep.ID, got.Items[0].ProductID)

	placed, err := store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	assert.Nil(t, placed.Items[0].ProductID)
	assert.Equal(t, "Ragi Malt", placed.Items[0].ProductName)
}

func newOrder(userID uuid.UUID, products ...*domain.Product) *domain.Order {
	now := Now()
	lines := make([]domain.CartLine, 0, len(products))
	for _, p := range products {
		lines = append(lines, domain.CartLine{
			Item:      *newCartItem(userID, domain.ProductRef(p.ID), 2, now),
			Name:      p.Name,
			Slug:      p.Slug,
			UnitPrice: p.UnitPrice(),
			LineTotal: p.UnitPrice().Mul(decimal.NewFromInt(2)),
		})
	}
	snapshot := domain.NewCartSnapshot(userID, lines, now)
	order, err := domain.NewOrder("ORD"+uuid.NewString()[:18], snapshot, domain.ShippingAddress{
		FullName:     "Test Customer",
		Phone:        "9876543210",
		AddressLine1: "12 Temple Street",
		City:         "Chennai",
		State:        "Tamil Nadu",
		Pincode:      "600001",
	}, domain.PaymentMethodCOD, now)
	if err != nil {
		panic(err)
	}
	return order
}

func testOrders(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Orders()

	user := mustCreateProfile(t, store)
	malt := mustCreateProduct(t, store, "Ragi Malt", 150)
	flakes := mustCreateProduct(t, store, "Jowar Flakes", 200)

	order := newOrder(user.ID, malt, flakes)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, decimal.NewFromInt(700).Equal(got.TotalAmount))
	assert.Equal(t, domain.OrderStatusPending, got.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Equal(t, order.ShippingAddress, got.ShippingAddress)
	require.Len(t, got.Items, 2)
	for _, item := range got.Items {
		assert.Equal(t, order.ID, item.OrderID)
	}

	dup := newOrder(user.ID, malt)
	dup.OrderNumber = order.OrderNumber
	assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrOrderNumberTaken)

	got.OrderStatus = domain.OrderStatusConfirmed
	got.UpdatedAt = Now()
	require.NoError(t, repo.UpdateStatus(ctx, got, domain.OrderStatusPending))
	got.PaymentStatus = domain.PaymentStatusPaid
	require.NoError(t, repo.UpdatePaymentStatus(ctx, got))

	// a writer still holding the old status loses
	stale := *got
	stale.OrderStatus = domain.OrderStatusCancelled
	err = repo.UpdateStatus(ctx, &stale, domain.OrderStatusPending)
	var transition *domain.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusConfirmed, transition.From)

	missing := newOrder(user.ID, malt)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, missing, domain.OrderStatusPending), repository.ErrOrderNotFound)
	assert.ErrorIs(t, repo.UpdatePaymentStatus(ctx, missing), repository.ErrOrderNotFound)

	byID, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, byID.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPaid, byID.PaymentStatus)
	assert.True(t, decimal.NewFromInt(700).Equal(byID.TotalAmount))

	second := newOrder(user.ID, flakes)
	second.CreatedAt = order.CreatedAt.Add(time.Minute)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, repo.Create(ctx, second))

	listed, err := repo.Find(ctx, domain.OrderFilter{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, order.ID, listed[1].ID)

	pending, err := repo.Count(ctx, domain.OrderFilter{UserID: &user.ID, Status: domain.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	after := order.CreatedAt.Add(30 * time.Second)
	recent, err := repo.Count(ctx, domain.OrderFilter{UserID: &user.ID, CreatedAfter: &after})
	require.NoError(t, err)
	assert.Equal(t, 1, recent)

	_, err = repo.FindByNumber(ctx, "ORD-missing")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

// advanceInTx is the read-check-write the order service performs
func advanceInTx(ctx context.Context, store repository.Store, id uuid.UUID, to domain.OrderStatus) error {
	return store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := order.OrderStatus
		if err := order.AdvanceTo(to, Now()); err != nil {
			return err
		}
		return tx.Orders().UpdateStatus(ctx, order, from)
	})
}

func testOrderStatusRace(t *testing.T, store repository.Store) {
	ctx := context.Background()

	user := mustCreateProfile(t, store)
	order := newOrder(user.ID, mustCreateProduct(t, store, "Kodo Millet", 140))
	require.NoError(t, store.Orders().Create(ctx, order))

	// every admin tries pending -> confirmed; once one has, the move is no
	// longer legal for the rest
	const admins = 6
	errs := make([]error, admins)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = advanceInTx(ctx, store, order.ID, domain.OrderStatusConfirmed)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	// a cancelled order stays cancelled whatever arrives afterwards
	require.NoError(t, advanceInTx(ctx, store, order.ID, domain.OrderStatusCancelled))
	assert.ErrorIs(t, advanceInTx(ctx, store, order.ID, domain.OrderStatusPacked), domain.ErrInvalidTransition)

	got, err := store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.OrderStatus)
}

func testProfiles(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.Profiles()

	profile := NewProfile()
	profile.Email = "Mixed-" + uuid.NewString() + "@Example.com"
	require.NoError(t, repo.Create(ctx, profile))

	byEmail, err := repo.FindByEmail(ctx, profile.Email)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, byEmail.ID)

	clash := NewProfile()
	clash.Email = byEmail.Email
	assert.ErrorIs(t, repo.Create(ctx, clash), repository.ErrProfileAlreadyExists)

	byEmail.FullName = "Renamed"
	byEmail.Phone = "9000000000"
	byEmail.UpdatedAt = Now()
	require.NoError(t, repo.Update(ctx, byEmail))

	byID, err := repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", byID.FullName)
	assert.Equal(t, "9000000000", byID.Phone)

	all, err := repo.Find(ctx)
	require.NoError(t, err)
	found := false
	for _, p := range all {
		found = found || p.ID == profile.ID
	}
	assert.True(t, found)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
}

func testRefreshTokens(t *testing.T, store repository.Store) {
	ctx := context.Background()
	repo := store.RefreshTokens()

	user := mustCreateProfile(t, store)
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: Now().Add(24 * time.Hour),
		CreatedAt: Now(),
	}
	require.NoError(t, repo.Create(ctx, token))

	got, err := repo.FindByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, repo.Revoke(ctx, token.Token))
	_, err = repo.FindByToken(ctx, token.Token)
	assert.ErrorIs(t, err, repository.ErrRefreshTokenRevoked)

	assert.ErrorIs(t, repo.Revoke(ctx, "unknown"), repository.ErrRefreshTokenNotFound)
}

func testTxCommit(t *testing.T, store repository.Store) {
	ctx := context.Background()

	user := mustCreateProfile(t, store)
	product := mustCreateProduct(t, store, "Ragi Malt", 150)
	require.NoError(t, store.Cart().Create(ctx, newCartItem(user.ID, domain.ProductRef(product.ID), 1, Now())))

	order := newOrder(user.ID, product)
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Cart().DeleteByUser(ctx, user.ID)
	})
	require.NoError(t, err)

	_, err = store.Orders().FindByID(ctx, order.ID)
	assert.NoError(t, err)

	items, err := store.Cart().FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testTxRollback(t *testing.T, store repository.Store) {
	ctx := context.Background()

	user := mustCreateProfile(t, store)
	product := mustCreateProduct(t, store, "Ragi Malt", 150)
	require.NoError(t, store.Cart().Create(ctx, newCartItem(user.ID, domain.ProductRef(product.ID), 1, Now())))

	boom := errors.New("boom")
	order := newOrder(user.ID, product)
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := tx.Cart().DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return tx.WithinTx(ctx, func(inner repository.Store) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Orders().FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	items, err := store.Cart().FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
