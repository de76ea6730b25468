package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jjudge-oj/accounts/config"
	"github.com/jjudge-oj/accounts/types"
)

const accountColumns = `id, username, email, password_hash, created_at, last_login_at, login_count`

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
	// lockClause is appended to the row lookup inside RecordLogin.
	lockClause string
}

func NewAccountRepository(db *sql.DB, driver string) *AccountRepository {
	repo := &AccountRepository{db: db}
	if driver == config.DriverPostgres {
		repo.lockClause = " FOR UPDATE"
	}
	return repo
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (types.Account, error) {
	var account types.Account
	var email sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&email,
		&account.PasswordHash,
		&account.CreatedAt,
		&lastLogin,
		&account.LoginCount,
	); err != nil {
		return types.Account{}, err
	}
	account.Email = email.String
	if lastLogin.Valid {
		t := lastLogin.Time
		account.LastLoginAt = &t
	}
	return account, nil
}

// List returns every account in insertion order.
func (r *AccountRepository) List(ctx context.Context) ([]types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]types.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

// Create inserts the account and returns it with its assigned ID. A
// collision on username or email yields *UniqueViolationError.
func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.LastLoginAt = nil
	account.LoginCount = 0

	var email sql.NullString
	if account.Email != "" {
		email = sql.NullString{String: account.Email, Valid: true}
	}

	const query = `
		INSERT INTO accounts (username, email, password_hash, created_at, login_count)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.Username,
		email,
		account.PasswordHash,
		account.CreatedAt,
	).Scan(&account.ID); err != nil {
		return types.Account{}, translateError(err)
	}
	return account, nil
}

// RecordLogin looks up the account by username, passes it to verify and, if
// verify succeeds, stamps the login time and increments the login counter.
// The lookup and update run in one transaction.
func (r *AccountRepository) RecordLogin(
	ctx context.Context,
	username string,
	at time.Time,
	verify func(types.Account) error,
) (types.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Account{}, fmt.Errorf("begin login tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1` + r.lockClause
	account, err := scanAccount(tx.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}

	if err := verify(account); err != nil {
		return types.Account{}, err
	}

	const update = `
		UPDATE accounts
		SET last_login_at = $1,
			login_count = login_count + 1
		WHERE id = $2`
	result, err := tx.ExecContext(ctx, update, at, account.ID)
	if err != nil {
		return types.Account{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Account{}, err
	}
	if affected == 0 {
		return types.Account{}, ErrNotFound
	}

	const reload = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	updated, err := scanAccount(tx.QueryRowContext(ctx, reload, account.ID))
	if err != nil {
		return types.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Account{}, fmt.Errorf("commit login tx: %w", err)
	}
	return updated, nil
}
