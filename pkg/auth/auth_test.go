package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, account *domain.Account, passwordHash string) error {
	args := m.Called(ctx, account, passwordHash)
	return args.Error(0)
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, string, error) {
	args := m.Called(ctx, email)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.String(1), args.Error(2)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.Error(1)
}

func appErrorCode(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	account := domain.Account{ID: "acc-1", FullName: "Jane Doe", Email: "jane@example.com"}

	session, err := issuer.Issue(account, "simulated")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, account, session.Account)

	claims, err := issuer.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "simulated", claims.Provider)
}

func TestTokenIssuerRejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	session, err := issuer.Issue(domain.Account{ID: "acc-1"}, "simulated")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other-secret", time.Minute).Parse(session.Token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer("test-secret", time.Minute)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(session.Token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.Error(t, err)
	})
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider(NewTokenIssuer("s", time.Hour))
	ctx := context.Background()

	signup, err := p.SignUp(ctx, &domain.SignUpRequest{FullName: " Jane Doe ", Email: "Jane@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", signup.Account.FullName)
	assert.Equal(t, "jane@example.com", signup.Account.Email)

	login, err := p.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "anything"})
	require.NoError(t, err)
	assert.Equal(t, signup.Account.ID, login.Account.ID, "same email maps to the same account id")
	assert.Equal(t, "jane", login.Account.FullName)
}

func TestBackendProviderSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("stores bcrypt hash", func(t *testing.T) {
		repo := new(mockAccountRepo)
		repo.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
			return a.Email == "jane@example.com" && a.ID != ""
		}), mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")) == nil
		})).Return(nil)

		p := NewBackendProvider(repo, NewTokenIssuer("s", time.Hour))
		p.cost = bcrypt.MinCost

		session, err := p.SignUp(ctx, &domain.SignUpRequest{FullName: "Jane", Email: "JANE@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(mockAccountRepo)
		repo.On("Create", ctx, mock.Anything, mock.Anything).Return(domain.ErrAccountExists)

		p := NewBackendProvider(repo, NewTokenIssuer("s", time.Hour))
		p.cost = bcrypt.MinCost

		_, err := p.SignUp(ctx, &domain.SignUpRequest{FullName: "Jane", Email: "jane@example.com", Password: "password123"})
		assert.Equal(t, http.StatusConflict, appErrorCode(t, err))
	})
}

func TestBackendProviderLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &domain.Account{ID: "acc-1", FullName: "Jane", Email: "jane@example.com"}

	repo := new(mockAccountRepo)
	repo.On("GetByEmail", ctx, "jane@example.com").Return(account, string(hash), nil)
	repo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, "", domain.ErrAccountNotFound)
	p := NewBackendProvider(repo, NewTokenIssuer("s", time.Hour))

	session, err := p.Login(ctx, &domain.LoginRequest{Email: "Jane@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", session.Account.ID)

	_, err = p.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, appErrorCode(t, err))

	_, err = p.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, appErrorCode(t, err))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, BcryptCost, cost)
}

func TestLockoutProvider(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := new(mockAccountRepo)
	repo.On("GetByEmail", ctx, "jane@example.com").Return(&domain.Account{ID: "acc-1", Email: "jane@example.com"}, string(hash), nil)

	tracker := security.NewLoginTracker(nil, security.LoginTrackerConfig{MaxAttempts: 2})
	p := WithLoginLockout(NewBackendProvider(repo, NewTokenIssuer("s", time.Hour)), tracker)
	assert.Equal(t, "postgres", p.Name())

	bad := &domain.LoginRequest{Email: "jane@example.com", Password: "wrong-password"}
	_, err = p.Login(ctx, bad)
	assert.Equal(t, http.StatusUnauthorized, appErrorCode(t, err))
	_, err = p.Login(ctx, bad)
	assert.Equal(t, http.StatusUnauthorized, appErrorCode(t, err))

	_, err = p.Login(ctx, &domain.LoginRequest{Email: "jane@example.com", Password: "password123"})
	assert.Equal(t, http.StatusTooManyRequests, appErrorCode(t, err), "correct password is refused while blocked")
}
