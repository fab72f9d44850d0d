package auth

import (
	"context"
	"strings"
	"time"

	"go-healthcare-frontdesk/internal/domain"

	"github.com/google/uuid"
)

// accountNamespace derives stable account IDs from email addresses
var accountNamespace = uuid.MustParse("6f1c1d2e-3b0a-4f55-9d0e-6a4b8f7c2e11")

// SimulatedProvider accepts any well-formed sign-up or login. It exists for demos and
// local development where no account store is available; tokens are still signed.
type SimulatedProvider struct {
	tokens *TokenIssuer
}

var _ domain.AuthProvider = (*SimulatedProvider)(nil)

func NewSimulatedProvider(tokens *TokenIssuer) *SimulatedProvider {
	return &SimulatedProvider{tokens: tokens}
}

func (p *SimulatedProvider) Name() string {
	return "simulated"
}

func (p *SimulatedProvider) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Session, error) {
	email := normalizeEmail(req.Email)
	return p.tokens.Issue(domain.Account{
		ID:        simulatedID(email),
		FullName:  strings.TrimSpace(req.FullName),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}, p.Name())
}

func (p *SimulatedProvider) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Session, error) {
	email := normalizeEmail(req.Email)
	name, _, _ := strings.Cut(email, "@")
	return p.tokens.Issue(domain.Account{
		ID:       simulatedID(email),
		FullName: name,
		Email:    email,
	}, p.Name())
}

func simulatedID(email string) string {
	return uuid.NewSHA1(accountNamespace, []byte(email)).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
