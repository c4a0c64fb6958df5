package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "portal", Password: "pw", DBName: "portal"}
	assert.Equal(t, "host=db port=5432 user=portal password=pw dbname=portal sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestNewDB_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDB(Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestUniqueConstraint(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantConstraint string
		wantOK         bool
	}{
		{"nil", nil, "", false},
		{"plain", errors.New("boom"), "", false},
		{"pq unique", &pq.Error{Code: "23505", Constraint: "uq_users_email"}, "uq_users_email", true},
		{"pq other code", &pq.Error{Code: "23503", Constraint: "fk"}, "", false},
		{"pgx unique", &pgconn.PgError{Code: "23505", ConstraintName: "uq_users_username"}, "uq_users_username", true},
		{"wrapped pgx", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "c"}), "c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueConstraint(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantConstraint, constraint)
		})
	}
}

func TestMigrate_UsesEmbeddedMigrations(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	boom := errors.New("migration failed")
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error { return boom }

	require.ErrorIs(t, Migrate(context.Background(), nil), boom)
}
