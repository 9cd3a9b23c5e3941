package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"
	"mansara-store/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CheckoutScenario(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)

	p1 := f.product(t, "Ragi Dosa Mix", 180, 150)
	extra := f.product(t, "Ghee Podi", 400, 0)
	c1 := f.combo(t, "Festive Combo", 650, p1, extra)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p1.ID), 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, user, domain.ComboRef(c1.ID), 1)
	require.NoError(t, err)

	subtotal, err := f.cart.Subtotal(ctx, user)
	require.NoError(t, err)
	require.True(t, subtotal.Equal(decimal.NewFromInt(950)), "subtotal = %s", subtotal)

	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(950)), "total = %s", order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, domain.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, user.ID, order.UserID)
	assert.Regexp(t, `^ORD\d{13}\d{4}[A-Z2-9]{4}$`, order.OrderNumber)
	assert.Len(t, order.Items, 2)

	count, err := f.cart.Count(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, count)

	tracking, err := f.orders.Tracking(ctx, user, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, tracking.Steps, len(domain.FulfillmentSteps))
	current, ok := tracking.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusPending, current.Status)
	for _, step := range tracking.Steps[1:] {
		assert.Equal(t, domain.StepUpcoming, step.State, step.Status)
	}

	mine, err := f.orders.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)
}

func TestOrderService_SnapshotFreezesTotal(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Kambu Mix", 200, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 3)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	p.Price = decimal.NewFromInt(999)
	_, err = f.catalog.UpdateProduct(ctx, f.root, p)
	require.NoError(t, err)

	stored, err := f.orders.GetByID(ctx, user, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(600)))
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "Kambu Mix", stored.Items[0].ProductName)
}

func TestOrderService_PlaceOrderRejections(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	other := f.customer(t)
	p := f.product(t, "Thattai", 60, 0)

	_, err := f.orders.Checkout(ctx, nil, chennaiAddress(), "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = f.orders.Checkout(ctx, user, chennaiAddress(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)

	bad := chennaiAddress()
	bad.Pincode = ""
	_, err = f.orders.Checkout(ctx, user, bad, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.orders.Checkout(ctx, user, chennaiAddress(), "card")
	assert.ErrorIs(t, err, domain.ErrValidation)

	snapshot, err := f.cart.Snapshot(ctx, user)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, other, snapshot, chennaiAddress(), "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// nothing above may have touched the cart
	count, err := f.cart.Count(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrderService_PlaceOrderUsesSnapshotPrices(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Adai Mix", 250, 220)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 2)
	require.NoError(t, err)
	snapshot, err := f.cart.Snapshot(ctx, user)
	require.NoError(t, err)

	offer := decimal.NewFromInt(100)
	p.OfferPrice = &offer
	_, err = f.catalog.UpdateProduct(ctx, f.root, p)
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, user, snapshot, chennaiAddress(), "")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(440)))
}

// failingCartStore fails every cart wipe so placement has to roll back
type failingCartStore struct {
	repository.Store
}

var errWipeFailed = errors.New("cart wipe failed")

func (s failingCartStore) Cart() repository.CartRepository {
	return failingCart{s.Store.Cart()}
}

func (s failingCartStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(failingCartStore{tx})
	})
}

type failingCart struct {
	repository.CartRepository
}

func (failingCart) DeleteByUser(context.Context, uuid.UUID) error {
	return errWipeFailed
}

func TestOrderService_PlacementIsAtomic(t *testing.T) {
	mem := memory.NewStore()
	f := newFixtureWith(t, mem, failingCartStore{mem})
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Vathal Kuzhambu Mix", 130, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 2)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, user, chennaiAddress(), "")
	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errWipeFailed)

	orders, err := mem.Orders().Count(ctx, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, orders)

	items, err := mem.Cart().FindByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestOrderService_ForeignOrdersLookMissing(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	owner := f.customer(t)
	stranger := f.customer(t)
	p := f.product(t, "Nendran Chips", 150, 0)

	_, err := f.cart.AddItem(ctx, owner, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, owner, chennaiAddress(), "")
	require.NoError(t, err)

	_, err = f.orders.GetByID(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	_, err = f.orders.GetByNumber(ctx, stranger, order.OrderNumber)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	_, err = f.orders.Tracking(ctx, stranger, order.OrderNumber)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byAdmin, err := f.orders.GetByNumber(ctx, f.root, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byAdmin.ID)

	theirs, err := f.orders.ListForUser(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

var allStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusPacked,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

func TestProperty_StatusOnlyMovesForward(t *testing.T) {
	properties := gopter.NewProperties(nil)

	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Kara Boondi", 70, 0)

	properties.Property("accepted moves go one step forward or cancel; rejected moves change nothing", prop.ForAll(
		func(targets []int) bool {
			if _, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1); err != nil {
				t.Logf("FAIL: AddItem failed: %v", err)
				return false
			}
			order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
			if err != nil {
				t.Logf("FAIL: Checkout failed: %v", err)
				return false
			}

			current := order.OrderStatus
			for _, idx := range targets {
				target := allStatuses[idx]
				updated, err := f.orders.AdvanceStatus(ctx, f.root, order.ID, target)

				if err != nil {
					var te *domain.TransitionError
					if !errors.As(err, &te) || te.From != current || te.To != target {
						t.Logf("FAIL: Unexpected error moving %s -> %s: %v", current, target, err)
						return false
					}
					stored, err := f.store.Orders().FindByID(ctx, order.ID)
					if err != nil {
						t.Logf("FAIL: FindByID failed: %v", err)
						return false
					}
					if stored.OrderStatus != current {
						t.Logf("FAIL: Rejected move changed status to %s", stored.OrderStatus)
						return false
					}
					continue
				}

				forward := target.StepIndex() == current.StepIndex()+1
				cancel := target == domain.OrderStatusCancelled && current.StepIndex() < domain.OrderStatusShipped.StepIndex()
				if !forward && !cancel {
					t.Logf("FAIL: Accepted illegal move %s -> %s", current, target)
					return false
				}
				if updated.OrderStatus != target {
					return false
				}
				current = target
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(0, len(allStatuses)-1)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestOrderService_StatusChangesNeedAdmin(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Mysore Pak", 300, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
	require.NoError(t, err)

	_, err = f.orders.AdvanceStatus(ctx, user, order.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.orders.UpdatePaymentStatus(ctx, user, order.ID, domain.PaymentStatusPaid)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.orders.AdvanceStatus(ctx, f.root, order.ID, domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	paid, err := f.orders.UpdatePaymentStatus(ctx, f.root, order.ID, domain.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, paid.OrderStatus)

	_, err = f.orders.UpdatePaymentStatus(ctx, f.root, order.ID, "bartered")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.orders.AdvanceStatus(ctx, f.root, uuid.New(), domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestOrderService_CancelledTracking(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Seedai", 90, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
	require.NoError(t, err)
	_, err = f.orders.AdvanceStatus(ctx, f.root, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	tracking, err := f.orders.Tracking(ctx, user, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, tracking.Cancelled)
	assert.Empty(t, tracking.Steps)
}

func TestOrderNumbers_DistinctUnderConcurrency(t *testing.T) {
	numbers := NewOrderNumbers(nil)

	const workers, perWorker = 16, 250
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, numbers.Next())
			}
			mu.Lock()
			for _, n := range local {
				seen[n] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestOrderService_ConcurrentCheckoutsPlaceOneOrder(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Kai Murukku", 120, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	placed := 0
	for err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	}
	assert.Equal(t, 1, placed)
}

func TestOrderService_ConcurrentAdminsMoveOrderOnce(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Thinai Laddu", 180, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
	require.NoError(t, err)

	const admins = 8
	var wg sync.WaitGroup
	errs := make(chan error, admins)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.AdvanceStatus(ctx, f.root, order.ID, domain.OrderStatusConfirmed)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	moved := 0
	for err := range errs {
		if err == nil {
			moved++
			continue
		}
		var transition *domain.TransitionError
		if assert.ErrorAs(t, err, &transition) {
			assert.Equal(t, domain.OrderStatusConfirmed, transition.From)
		}
	}
	assert.Equal(t, 1, moved)
}

func TestOrderService_PaymentUpdateKeepsCancellation(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.customer(t)
	p := f.product(t, "Varagu Pongal Mix", 160, 0)

	_, err := f.cart.AddItem(ctx, user, domain.ProductRef(p.ID), 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, user, chennaiAddress(), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.orders.AdvanceStatus(ctx, f.root, order.ID, domain.OrderStatusCancelled)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.orders.UpdatePaymentStatus(ctx, f.root, order.ID, domain.PaymentStatusRefunded)
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := f.orders.GetByID(ctx, f.root, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.OrderStatus)
	assert.Equal(t, domain.PaymentStatusRefunded, got.PaymentStatus)
}
