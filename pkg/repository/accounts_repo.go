package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/portal-auth/pkg/domain"
)

const accountColumns = `user_id, username, email, password, status, role, create_at, update_at`

// AccountsRepository handles account persistence.
type AccountsRepository struct {
	db Querier
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db Querier) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// Create inserts an account and sets its ID. Username and email collisions
// return domain.ErrUsernameAlreadyExists and domain.ErrEmailAlreadyExists.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO users (username, email, password, status, role, create_at, update_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id
	`
	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.PasswordHash,
		string(account.Status), string(account.Role), account.CreatedAt, account.UpdatedAt,
	).Scan(&account.ID)
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "uq_users_username":
			return domain.ErrUsernameAlreadyExists
		case "uq_users_email":
			return domain.ErrEmailAlreadyExists
		}
		return domain.ErrAlreadyExists
	}
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE user_id = $1`, id)
}

// GetByUsername retrieves an account by username.
func (r *AccountsRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username)
}

// GetByEmail retrieves an account by email.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
}

// GetByUsernameOrEmail returns the account matching either value, preferring
// a username match.
func (r *AccountsRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users
		WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC
		LIMIT 1`
	return r.getOne(ctx, query, username, email)
}

// ExistsByUsername checks if a username is already taken.
func (r *AccountsRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

// ExistsByEmail checks if an email is already taken.
func (r *AccountsRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

// UpdateStatus sets the account status.
func (r *AccountsRepository) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	query := `UPDATE users SET status = $2, update_at = NOW() WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountsRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	account := &domain.Account{}
	var status, role string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&status, &role, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account.Status = domain.Status(status)
	account.Role = domain.Role(role)
	return account, nil
}

func (r *AccountsRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
