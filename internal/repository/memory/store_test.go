package memory

import (
	"context"
	"sync"
	"testing"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"
	"mansara-store/internal/repository/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return NewStore()
	})
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	product := storetest.NewProduct("Ragi Malt", 150)
	require.NoError(t, store.Products().Create(ctx, product))

	product.Name = "Changed after create"
	got, err := store.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ragi Malt", got.Name)

	got.Images[0] = "mutated.jpg"
	again, err := store.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated.jpg", again.Images[0])
}

func TestConcurrentCartCreatesKeepOneLine(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	product := storetest.NewProduct("Ragi Malt", 150)
	require.NoError(t, store.Products().Create(ctx, product))
	userID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := storetest.Now()
			err := store.Cart().Create(ctx, &domain.CartItem{
				ID:        uuid.New(),
				UserID:    userID,
				ItemRef:   domain.ProductRef(product.ID),
				Quantity:  1,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrCartItemExists)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	items, err := store.Cart().FindByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Products().Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	err = store.WithinTx(ctx, func(tx repository.Store) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
