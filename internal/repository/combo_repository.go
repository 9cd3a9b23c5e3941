package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mansara-store/internal/domain"

	"github.com/google/uuid"
)

const comboColumns = `id, name, slug, description, image_url, combo_price, original_price, is_active, created_at, updated_at`

type comboRepository struct {
	db DBTX
}

// NewComboRepository creates a new instance of ComboRepository
func NewComboRepository(db DBTX) ComboRepository {
	return &comboRepository{db: db}
}

// Create inserts a combo and its items. Callers wanting both writes to be
// atomic run it inside Store.WithinTx.
func (r *comboRepository) Create(ctx context.Context, combo *domain.Combo) error {
	query := `
		INSERT INTO combos (` + comboColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		combo.ID,
		combo.Name,
		combo.Slug,
		combo.Description,
		combo.ImageURL,
		combo.ComboPrice,
		combo.OriginalPrice,
		combo.IsActive,
		combo.CreatedAt,
		combo.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create combo: %w", err)
	}

	return r.insertItems(ctx, combo.ID, combo.Items)
}

// Update updates the combo row; items are changed with ReplaceItems
func (r *comboRepository) Update(ctx context.Context, combo *domain.Combo) error {
	query := `
		UPDATE combos
		SET name = $2, slug = $3, description = $4, image_url = $5, combo_price = $6,
		    original_price = $7, is_active = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		combo.ID,
		combo.Name,
		combo.Slug,
		combo.Description,
		combo.ImageURL,
		combo.ComboPrice,
		combo.OriginalPrice,
		combo.IsActive,
		combo.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update combo: %w", err)
	}

	return expectOneRow(result, ErrComboNotFound)
}

// Delete removes a combo; its items and cart rows cascade
func (r *comboRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM combos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete combo: %w", err)
	}

	return expectOneRow(result, ErrComboNotFound)
}

// FindByID retrieves a combo with its items
func (r *comboRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Combo, error) {
	query := `SELECT ` + comboColumns + ` FROM combos WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindBySlug retrieves a combo with its items by URL slug
func (r *comboRepository) FindBySlug(ctx context.Context, slug string) (*domain.Combo, error) {
	query := `SELECT ` + comboColumns + ` FROM combos WHERE slug = $1`
	return r.findOne(ctx, query, slug)
}

// Find lists combos, newest first
func (r *comboRepository) Find(ctx context.Context, activeOnly bool) ([]*domain.Combo, error) {
	query := `SELECT ` + comboColumns + ` FROM combos`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC, name ASC`

	return r.findMany(ctx, query)
}

// FindByProduct lists the combos that contain a product
func (r *comboRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Combo, error) {
	query := `
		SELECT ` + comboColumns + ` FROM combos
		WHERE id IN (SELECT combo_id FROM combo_items WHERE product_id = $1)
		ORDER BY created_at DESC
	`
	return r.findMany(ctx, query, productID)
}

// ReplaceItems swaps the full item list of a combo
func (r *comboRepository) ReplaceItems(ctx context.Context, comboID uuid.UUID, items []domain.ComboItem) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM combo_items WHERE combo_id = $1`, comboID); err != nil {
		return fmt.Errorf("failed to clear combo items: %w", err)
	}
	return r.insertItems(ctx, comboID, items)
}

func (r *comboRepository) insertItems(ctx context.Context, comboID uuid.UUID, items []domain.ComboItem) error {
	query := `
		INSERT INTO combo_items (id, combo_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, item := range items {
		_, err := r.db.ExecContext(ctx, query, item.ID, comboID, item.ProductID, item.Quantity, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create combo item: %w", err)
		}
	}

	return nil
}

func (r *comboRepository) findOne(ctx context.Context, query string, arg any) (*domain.Combo, error) {
	combo, err := scanCombo(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrComboNotFound
		}
		return nil, fmt.Errorf("failed to find combo: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Combo{combo}); err != nil {
		return nil, err
	}

	return combo, nil
}

func (r *comboRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.Combo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list combos: %w", err)
	}
	defer rows.Close()

	combos := []*domain.Combo{}
	for rows.Next() {
		combo, err := scanCombo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combo: %w", err)
		}
		combos = append(combos, combo)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating combos: %w", err)
	}

	if err := r.attachItems(ctx, combos); err != nil {
		return nil, err
	}

	return combos, nil
}

func (r *comboRepository) attachItems(ctx context.Context, combos []*domain.Combo) error {
	if len(combos) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Combo, len(combos))
	ids := make([]uuid.UUID, 0, len(combos))
	for _, combo := range combos {
		byID[combo.ID] = combo
		ids = append(ids, combo.ID)
	}

	query := `
		SELECT id, combo_id, product_id, quantity, created_at
		FROM combo_items
		WHERE combo_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load combo items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ComboItem
		if err := rows.Scan(&item.ID, &item.ComboID, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan combo item: %w", err)
		}
		if combo, ok := byID[item.ComboID]; ok {
			combo.Items = append(combo.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating combo items: %w", err)
	}

	return nil
}

func scanCombo(row rowScanner) (*domain.Combo, error) {
	combo := &domain.Combo{}
	err := row.Scan(
		&combo.ID,
		&combo.Name,
		&combo.Slug,
		&combo.Description,
		&combo.ImageURL,
		&combo.ComboPrice,
		&combo.OriginalPrice,
		&combo.IsActive,
		&combo.CreatedAt,
		&combo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return combo, nil
}
