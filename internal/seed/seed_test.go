package seed

import (
	"context"
	"testing"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository/memory"
	"mansara-store/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTokens = service.TokenConfig{Secret: "seed-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour}

func TestRunSeedsCatalogCustomersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	opts := DefaultOptions()
	opts.Customers = 3
	res, err := New(store, testTokens, 42, zap.NewNop()).Run(ctx, opts)
	require.NoError(t, err)

	assert.True(t, res.Admin.IsAdmin)
	assert.Len(t, res.Products, len(catalog))
	assert.Len(t, res.Combos, len(combos))
	assert.Len(t, res.Customers, 3)
	require.Len(t, res.Orders, 3)

	for _, p := range res.Products {
		require.NoError(t, p.Validate(), p.Slug)
		if p.OfferPrice != nil {
			assert.True(t, p.OfferPrice.LessThan(p.Price), p.Slug)
		}
	}
	for _, c := range res.Combos {
		assert.True(t, c.ComboPrice.LessThan(c.OriginalPrice), c.Slug)
		assert.Positive(t, c.SavingsPercent(), c.Slug)
	}
	for _, o := range res.Orders {
		assert.Equal(t, domain.OrderStatusPending, o.OrderStatus)
		assert.Equal(t, domain.PaymentMethodCOD, o.PaymentMethod)
		assert.True(t, o.TotalAmount.IsPositive())
	}

	stored, err := store.Profiles().FindByEmail(ctx, opts.AdminEmail)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)
}

func TestRunIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	opts := DefaultOptions()
	opts.Customers = 1
	opts.OrdersPerCustomer = 0

	first, err := New(store, testTokens, 7, zap.NewNop()).Run(ctx, opts)
	require.NoError(t, err)
	second, err := New(store, testTokens, 7, zap.NewNop()).Run(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Admin.ID, second.Admin.ID)
	for i := range first.Products {
		assert.Equal(t, first.Products[i].ID, second.Products[i].ID)
	}
	for i := range first.Combos {
		assert.Equal(t, first.Combos[i].ID, second.Combos[i].ID)
	}

	products, err := store.Products().Find(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, len(catalog))
}

func TestSeededAdminCanLogIn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	opts := DefaultOptions()
	opts.Customers = 0
	_, err := New(store, testTokens, 1, zap.NewNop()).Run(ctx, opts)
	require.NoError(t, err)

	profiles := service.NewProfileService(store, testTokens, zap.NewNop())
	access, _, profile, err := profiles.Login(ctx, opts.AdminEmail, opts.AdminPassword)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)

	claims, err := profiles.ValidateToken(access)
	require.NoError(t, err)
	assert.True(t, claims.Identity().IsAdmin)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "multi-millet-dosa-mix", slugify("Multi Millet Dosa Mix"))
	assert.True(t, domain.ValidSlug(slugify("Ragi Malt")))
}
