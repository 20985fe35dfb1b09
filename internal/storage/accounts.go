package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/qbank/internal/domain"
)

// CreateAccount inserts a new account. The email must already be normalized.
func (db *DB) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.Email, a.PasswordHash, toUnix(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Email, domain.ErrEmailTaken)
		}
		return unavailable(fmt.Sprintf("failed to insert account %s", a.Email), err)
	}
	return nil
}

// FindAccountByEmail retrieves an account by its normalized email.
func (db *DB) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM accounts WHERE email = ?
	`, email)
	return scanAccount(row, email)
}

// FindAccountByID retrieves an account by its id.
func (db *DB) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM accounts WHERE id = ?
	`, id)
	return scanAccount(row, id)
}

func scanAccount(row *sql.Row, key string) (*domain.Account, error) {
	var a domain.Account
	var created int64
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", key, domain.ErrNotFound)
		}
		return nil, unavailable(fmt.Sprintf("failed to find account %s", key), err)
	}
	a.CreatedAt = fromUnix(created)
	return &a, nil
}
