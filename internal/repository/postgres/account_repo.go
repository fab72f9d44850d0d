package postgres

import (
	"context"
	"errors"
	"fmt"

	"go-healthcare-frontdesk/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

const accountSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            UUID PRIMARY KEY,
    full_name     TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) domain.AccountRepository {
	return &accountRepo{db: db}
}

// EnsureAccountSchema creates the accounts table when it does not exist yet
func EnsureAccountSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, accountSchema); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *accountRepo) Create(ctx context.Context, account *domain.Account, passwordHash string) error {
	query := `INSERT INTO accounts (id, full_name, email, password_hash, created_at)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, account.ID, account.FullName, account.Email, passwordHash, account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, string, error) {
	query := `SELECT id, full_name, email, password_hash, created_at FROM accounts WHERE email = $1`
	var (
		account domain.Account
		hash    string
	)
	err := r.db.QueryRow(ctx, query, email).Scan(
		&account.ID, &account.FullName, &account.Email, &hash, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrAccountNotFound
		}
		return nil, "", fmt.Errorf("select account by email: %w", err)
	}
	return &account, hash, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT id, full_name, email, created_at FROM accounts WHERE id = $1`
	var account domain.Account
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.FullName, &account.Email, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account by id: %w", err)
	}
	return &account, nil
}
