package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"mansara-store/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*postgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db).(*postgresStore), mock
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func sampleProduct() *domain.Product {
	now := time.Now()
	return &domain.Product{
		ID:        uuid.New(),
		Name:      "Ragi Malt",
		Slug:      "ragi-malt",
		Category:  "Health Mixes",
		Price:     decimal.NewFromInt(150),
		Images:    []string{"ragi.jpg"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProductCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO products").WillReturnError(uniqueErr("products_slug_key"))

	err := store.Products().Create(context.Background(), sampleProduct())
	assert.ErrorIs(t, err, ErrSlugTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductFindBySlugScansRow(t *testing.T) {
	store, mock := newMock(t)
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "name", "slug", "category", "sub_category", "short_description", "full_description",
		"ingredients", "how_to_use", "storage_instructions", "weight", "price", "offer_price", "stock_quantity",
		"images", "main_image_index", "is_offer", "is_new_arrival", "is_featured", "is_active", "created_at", "updated_at",
	}).AddRow(
		id.String(), "Ragi Malt", "ragi-malt", "Health Mixes", "", "", "",
		"", "", "", "500g", "150.00", "120.00", 12,
		[]byte(`["front.jpg","back.jpg"]`), 1, true, false, true, true, now, now,
	)
	mock.ExpectQuery("FROM products WHERE slug").WithArgs("ragi-malt").WillReturnRows(rows)

	product, err := store.Products().FindBySlug(context.Background(), "ragi-malt")
	require.NoError(t, err)
	assert.Equal(t, id, product.ID)
	assert.True(t, decimal.NewFromInt(150).Equal(product.Price))
	require.NotNil(t, product.OfferPrice)
	assert.True(t, decimal.NewFromInt(120).Equal(product.UnitPrice()))
	assert.Equal(t, "back.jpg", product.MainImage())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductFindByIDNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM products WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Products().FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCartCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO cart_items").WillReturnError(uniqueErr("cart_items_user_product_key"))

	now := time.Now()
	err := store.Cart().Create(context.Background(), &domain.CartItem{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ItemRef:   domain.ProductRef(uuid.New()),
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	assert.ErrorIs(t, err, ErrCartItemExists)
}

func TestCartUpdateMissingRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("UPDATE cart_items").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Cart().Update(context.Background(), &domain.CartItem{ID: uuid.New(), Quantity: 2})
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestOrderUpdateStatusIsConditional(t *testing.T) {
	store, mock := newMock(t)
	order := &domain.Order{
		ID:          uuid.New(),
		OrderStatus: domain.OrderStatusConfirmed,
		UpdatedAt:   time.Now(),
	}

	mock.ExpectExec("UPDATE orders").
		WithArgs(order.ID, "confirmed", order.UpdatedAt, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Orders().UpdateStatus(context.Background(), order, domain.OrderStatusPending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateStatusLostRace(t *testing.T) {
	store, mock := newMock(t)
	order := &domain.Order{ID: uuid.New(), OrderStatus: domain.OrderStatusConfirmed, UpdatedAt: time.Now()}

	// another admin cancelled the order between our read and our write
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT order_status FROM orders").
		WithArgs(order.ID).
		WillReturnRows(sqlmock.NewRows([]string{"order_status"}).AddRow("cancelled"))

	err := store.Orders().UpdateStatus(context.Background(), order, domain.OrderStatusPending)

	var transition *domain.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusCancelled, transition.From)
	assert.Equal(t, domain.OrderStatusConfirmed, transition.To)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateStatusMissingRow(t *testing.T) {
	store, mock := newMock(t)
	order := &domain.Order{ID: uuid.New(), OrderStatus: domain.OrderStatusConfirmed, UpdatedAt: time.Now()}

	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT order_status FROM orders").
		WithArgs(order.ID).
		WillReturnRows(sqlmock.NewRows([]string{"order_status"}))

	err := store.Orders().UpdateStatus(context.Background(), order, domain.OrderStatusPending)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderUpdatePaymentStatusLeavesOrderStatus(t *testing.T) {
	store, mock := newMock(t)
	order := &domain.Order{
		ID:            uuid.New(),
		OrderStatus:   domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPaid,
		UpdatedAt:     time.Now(),
	}

	mock.ExpectExec(`UPDATE orders\s+SET payment_status = \$2, updated_at = \$3\s+WHERE id = \$1`).
		WithArgs(order.ID, "paid", order.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Orders().UpdatePaymentStatus(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileFindByEmailLowercases(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM profiles WHERE email").
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Profiles().FindByEmail(context.Background(), "Asha@Example.COM")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRevokedIsRejected(t *testing.T) {
	store, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at", "revoked"}).
		AddRow(uuid.NewString(), uuid.NewString(), time.Now().Add(time.Hour), time.Now(), true)
	mock.ExpectQuery("FROM refresh_tokens").WithArgs(tokenDigest("tok")).WillReturnRows(rows)

	_, err := store.RefreshTokens().FindByToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestRefreshTokensAreStoredAsDigests(t *testing.T) {
	store, mock := newMock(t)
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Token:     "plain-refresh-token",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}

	digest := tokenDigest(token.Token)
	assert.Len(t, digest, 64)
	assert.NotContains(t, digest, token.Token)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(token.ID, token.UserID, digest, token.ExpiresAt, token.CreatedAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.RefreshTokens().Create(context.Background(), token))

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	err := store.RefreshTokens().Create(context.Background(), token)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommits(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Store) error {
		return tx.Cart().DeleteByUser(context.Background(), uuid.New())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Store) error {
		if err := tx.Cart().DeleteByUser(context.Background(), uuid.New()); err != nil {
			return err
		}
		return tx.WithinTx(context.Background(), func(Store) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithinTx(context.Background(), func(Store) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
