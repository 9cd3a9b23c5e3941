package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mansara-store/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound      = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrComboNotFound        = fmt.Errorf("combo %w", domain.ErrNotFound)
	ErrCartItemNotFound     = fmt.Errorf("cart item %w", domain.ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("profile %w", domain.ErrNotFound)
	ErrRefreshTokenNotFound = fmt.Errorf("refresh token %w", domain.ErrNotFound)
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")

	ErrSlugTaken            = fmt.Errorf("%w: slug is already in use", domain.ErrConflict)
	ErrCartItemExists       = fmt.Errorf("%w: cart already holds this item", domain.ErrConflict)
	ErrOrderNumberTaken     = fmt.Errorf("%w: order number already exists", domain.ErrConflict)
	ErrProfileAlreadyExists = fmt.Errorf("%w: profile with this email already exists", domain.ErrConflict)
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Find(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Count(ctx context.Context) (int, error)
}

// ComboRepository defines the interface for combo data access. Combos are
// always returned with their items.
type ComboRepository interface {
	Create(ctx context.Context, combo *domain.Combo) error
	Update(ctx context.Context, combo *domain.Combo) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Combo, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Combo, error)
	Find(ctx context.Context, activeOnly bool) ([]*domain.Combo, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Combo, error)
	ReplaceItems(ctx context.Context, comboID uuid.UUID, items []domain.ComboItem) error
}

// CartRepository defines the interface for cart item data access
type CartRepository interface {
	Create(ctx context.Context, item *domain.CartItem) error
	Update(ctx context.Context, item *domain.CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// OrderRepository defines the interface for order data access. Orders are
// always returned with their items.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	// UpdateStatus writes order.OrderStatus only while the stored status is
	// still from. When another writer got there first it returns a
	// *domain.TransitionError carrying the stored status.
	UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	Find(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	Count(ctx context.Context, filter domain.OrderFilter) (int, error)
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
	Find(ctx context.Context) ([]*domain.Profile, error)
}

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

// Store groups the repositories of one backend. Repositories obtained from
// the Store passed to WithinTx's callback share its transaction; if the
// callback returns an error nothing it wrote is kept.
type Store interface {
	Products() ProductRepository
	Combos() ComboRepository
	Cart() CartRepository
	Orders() OrderRepository
	Profiles() ProfileRepository
	RefreshTokens() RefreshTokenRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// uniqueViolation returns the violated constraint name for a Postgres
// unique_violation error.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
