package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

type Account struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is returned after a successful sign-up or login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Account   `json:"account"`
}

type SignUpRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthProvider authenticates site visitors. Implementations live in pkg/auth.
type AuthProvider interface {
	Name() string
	SignUp(ctx context.Context, req *SignUpRequest) (*Session, error)
	Login(ctx context.Context, req *LoginRequest) (*Session, error)
}

// AccountRepository persists accounts for the postgres auth provider.
type AccountRepository interface {
	Create(ctx context.Context, account *Account, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (*Account, string, error)
	GetByID(ctx context.Context, id string) (*Account, error)
}
