package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"mansara-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, slug, category, sub_category, short_description, full_description,
	ingredients, how_to_use, storage_instructions, weight, price, offer_price, stock_quantity,
	images, main_image_index, is_offer, is_new_arrival, is_featured, is_active, created_at, updated_at`

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Category,
		product.SubCategory,
		product.ShortDescription,
		product.FullDescription,
		product.Ingredients,
		product.HowToUse,
		product.StorageInstructions,
		product.Weight,
		product.Price,
		nullDecimal(product.OfferPrice),
		product.StockQuantity,
		images,
		product.MainImageIndex,
		product.IsOffer,
		product.IsNewArrival,
		product.IsFeatured,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, category = $4, sub_category = $5, short_description = $6,
		    full_description = $7, ingredients = $8, how_to_use = $9, storage_instructions = $10,
		    weight = $11, price = $12, offer_price = $13, stock_quantity = $14, images = $15,
		    main_image_index = $16, is_offer = $17, is_new_arrival = $18, is_featured = $19,
		    is_active = $20, updated_at = $21
		WHERE id = $1
	`

	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Category,
		product.SubCategory,
		product.ShortDescription,
		product.FullDescription,
		product.Ingredients,
		product.HowToUse,
		product.StorageInstructions,
		product.Weight,
		product.Price,
		nullDecimal(product.OfferPrice),
		product.StockQuantity,
		images,
		product.MainImageIndex,
		product.IsOffer,
		product.IsNewArrival,
		product.IsFeatured,
		product.IsActive,
		product.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// Delete removes a product; cart and combo rows referencing it cascade
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by its URL slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// Find retrieves products matching the filter, newest first
func (r *productRepository) Find(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	conditions := []string{}
	args := []any{}

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.SubCategory != "" {
		add("sub_category = $%d", filter.SubCategory)
	}
	if filter.IsOffer != nil {
		add("is_offer = $%d", *filter.IsOffer)
	}
	if filter.IsNewArrival != nil {
		add("is_new_arrival = $%d", *filter.IsNewArrival)
	}
	if filter.IsFeatured != nil {
		add("is_featured = $%d", *filter.IsFeatured)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if strings.TrimSpace(filter.Search) != "" {
		// Use ILIKE for case-insensitive search
		add("(name ILIKE $%[1]d OR short_description ILIKE $%[1]d)", "%"+strings.TrimSpace(filter.Search)+"%")
	}
	if filter.IDs != nil {
		add("id = ANY($%d::uuid[])", uuidStrings(filter.IDs))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at DESC, name ASC`, productColumns, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Count returns the number of products in the catalog
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var offer decimal.NullDecimal
	var images []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Category,
		&product.SubCategory,
		&product.ShortDescription,
		&product.FullDescription,
		&product.Ingredients,
		&product.HowToUse,
		&product.StorageInstructions,
		&product.Weight,
		&product.Price,
		&offer,
		&product.StockQuantity,
		&images,
		&product.MainImageIndex,
		&product.IsOffer,
		&product.IsNewArrival,
		&product.IsFeatured,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if offer.Valid {
		product.OfferPrice = &offer.Decimal
	}
	if err := json.Unmarshal(images, &product.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}

	return product, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
