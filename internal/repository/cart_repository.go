package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mansara-store/internal/domain"

	"github.com/google/uuid"
)

const cartColumns = `id, user_id, product_id, combo_id, quantity, created_at, updated_at`

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

// Create inserts a cart line. A second line for the same reference violates
// the (user_id, product_id) or (user_id, combo_id) unique constraint.
func (r *cartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.UserID,
		nullUUID(item.ProductID),
		nullUUID(item.ComboID),
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrCartItemExists
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}

	return nil
}

// Update changes the quantity of a cart line
func (r *cartRepository) Update(ctx context.Context, item *domain.CartItem) error {
	query := `UPDATE cart_items SET quantity = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, item.ID, item.Quantity, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return expectOneRow(result, ErrCartItemNotFound)
}

// Delete removes a single cart line
func (r *cartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return expectOneRow(result, ErrCartItemNotFound)
}

// FindByID retrieves a cart line by ID
func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// FindByUser lists a user's cart lines in the order they were added
func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE user_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// DeleteByUser empties a user's cart
func (r *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	var productID, comboID uuid.NullUUID

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&productID,
		&comboID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.ProductID = uuidPtr(productID)
	item.ComboID = uuidPtr(comboID)
	return item, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
