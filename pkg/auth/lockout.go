package auth

import (
	"context"
	"errors"
	"net/http"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/logger"
	"go-healthcare-frontdesk/pkg/security"
)

// LockoutProvider blocks an email after repeated failed logins
type LockoutProvider struct {
	domain.AuthProvider
	tracker *security.LoginTracker
}

func WithLoginLockout(provider domain.AuthProvider, tracker *security.LoginTracker) *LockoutProvider {
	return &LockoutProvider{AuthProvider: provider, tracker: tracker}
}

func (p *LockoutProvider) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Session, error) {
	blocked, err := p.tracker.IsBlocked(ctx, req.Email)
	if err != nil {
		// Tracker outage must not lock everyone out
		logger.Log.Warn("login tracker unavailable", "error", err)
	}
	if blocked {
		return nil, apperror.New(http.StatusTooManyRequests, "Too many failed login attempts. Please try again later.", nil)
	}

	session, err := p.AuthProvider.Login(ctx, req)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusUnauthorized {
			nowBlocked, trackErr := p.tracker.RecordFailure(ctx, req.Email)
			if trackErr != nil {
				logger.Log.Warn("failed to record login failure", "error", trackErr)
			}
			if nowBlocked {
				logger.Log.Info("login blocked after repeated failures", "provider", p.Name())
			}
		}
		return nil, err
	}

	if err := p.tracker.Clear(ctx, req.Email); err != nil {
		logger.Log.Warn("failed to clear login attempts", "error", err)
	}
	return session, nil
}
