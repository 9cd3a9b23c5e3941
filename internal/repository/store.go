package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type postgresStore struct {
	db *sql.DB
	q  DBTX
	tx *sql.Tx
}

// NewStore returns the PostgreSQL-backed Store
func NewStore(db *sql.DB) Store {
	return &postgresStore{db: db, q: db}
}

func (s *postgresStore) Products() ProductRepository { return NewProductRepository(s.q) }

func (s *postgresStore) Combos() ComboRepository { return NewComboRepository(s.q) }

func (s *postgresStore) Cart() CartRepository { return NewCartRepository(s.q) }

func (s *postgresStore) Orders() OrderRepository { return NewOrderRepository(s.q) }

func (s *postgresStore) Profiles() ProfileRepository { return NewProfileRepository(s.q) }

func (s *postgresStore) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.q) }

// WithinTx runs fn in a database transaction. Nested calls join the
// outer transaction.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&postgresStore{db: s.db, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
