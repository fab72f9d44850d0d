package usecase

import (
	"context"
	"sort"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/logger"
)

// HealthCheck probes one optional backing service
type HealthCheck func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	mailer domain.Mailer
	checks map[string]HealthCheck
}

// NewHealthUsecase reports mail configuration plus the result of every named check
func NewHealthUsecase(mailer domain.Mailer, checks map[string]HealthCheck) HealthUsecase {
	return &healthUsecase{
		mailer: mailer,
		checks: checks,
	}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	status := map[string]string{
		"status": "ok",
		"mail":   "configured",
	}
	if u.mailer == nil || !u.mailer.IsConfigured() {
		status["mail"] = "not_configured"
		status["status"] = "degraded"
	}

	names := make([]string, 0, len(u.checks))
	for name := range u.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := u.checks[name](checkCtx)
		cancel()

		if err != nil {
			logger.Log.Warn("health check failed", "component", name, "error", err)
			status[name] = "unavailable"
			status["status"] = "degraded"
			continue
		}
		status[name] = "ok"
	}

	return status
}
