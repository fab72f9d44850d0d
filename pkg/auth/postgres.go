package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = 10

// HashPassword returns the bcrypt hash stored for an account
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// BackendProvider authenticates against accounts stored in Postgres
type BackendProvider struct {
	accounts domain.AccountRepository
	tokens   *TokenIssuer
	cost     int
}

var _ domain.AuthProvider = (*BackendProvider)(nil)

func NewBackendProvider(accounts domain.AccountRepository, tokens *TokenIssuer) *BackendProvider {
	return &BackendProvider{
		accounts: accounts,
		tokens:   tokens,
		cost:     BcryptCost,
	}
}

func (p *BackendProvider) Name() string {
	return "postgres"
}

func (p *BackendProvider) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	account := &domain.Account{
		ID:        uuid.NewString(),
		FullName:  strings.TrimSpace(req.FullName),
		Email:     normalizeEmail(req.Email),
		CreatedAt: time.Now().UTC(),
	}

	if err := p.accounts.Create(ctx, account, string(hash)); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, apperror.Conflict("An account with this email already exists")
		}
		return nil, apperror.Internal(err)
	}

	return p.tokens.Issue(*account, p.Name())
}

func (p *BackendProvider) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Session, error) {
	account, hash, err := p.accounts.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Same cost as a real comparison so response time does not reveal registered emails
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, apperror.Unauthorized("Invalid email or password")
		}
		return nil, apperror.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	return p.tokens.Issue(*account, p.Name())
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), BcryptCost)
