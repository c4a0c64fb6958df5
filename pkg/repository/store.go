package repository

import (
	"context"
	"database/sql"

	"github.com/tendant/portal-auth/pkg/auth"
)

// Store vends repositories bound either to the pool or to one transaction.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Stores returns repositories bound to the pool.
func (s *Store) Stores() auth.Stores {
	return storesFor(s.db)
}

// InTx runs fn with repositories bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, stores auth.Stores) error) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, storesFor(tx))
	})
}

func storesFor(q Querier) auth.Stores {
	return auth.Stores{
		Accounts:      NewAccountsRepository(q),
		Attempts:      NewAttemptsRepository(q),
		Confirmations: NewConfirmationTokensRepository(q),
		RefreshTokens: NewRefreshTokensRepository(q),
	}
}
