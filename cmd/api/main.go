package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-healthcare-frontdesk/config"
	_ "go-healthcare-frontdesk/docs" // Important for Swagger
	"go-healthcare-frontdesk/internal/delivery/http/middleware"
	v1 "go-healthcare-frontdesk/internal/delivery/http/v1"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/internal/repository/memory"
	"go-healthcare-frontdesk/internal/repository/postgres"
	"go-healthcare-frontdesk/internal/usecase"
	"go-healthcare-frontdesk/pkg/auth"
	"go-healthcare-frontdesk/pkg/database"
	"go-healthcare-frontdesk/pkg/email"
	"go-healthcare-frontdesk/pkg/logger"
	"go-healthcare-frontdesk/pkg/metrics"
	"go-healthcare-frontdesk/pkg/redis"
	"go-healthcare-frontdesk/pkg/security"
	"go-healthcare-frontdesk/pkg/security/antivirus"
	"go-healthcare-frontdesk/pkg/storage"
	"go-healthcare-frontdesk/pkg/validation"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// @title           Healthcare Front Desk API
// @version         1.0
// @description     Form relay, cart and account endpoints for the clinic website.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init()
	logger.Log.Info("Starting front desk backend", "port", cfg.Port, "auth_provider", cfg.AuthProvider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]usecase.HealthCheck{}

	// 3. Setup Email Service
	signer, err := email.NewDKIMSigner(email.DKIMConfig{
		Selector:   cfg.DKIMSelector,
		Domain:     cfg.DKIMDomain,
		KeyPath:    cfg.DKIMKeyPath,
		PrivateKey: cfg.DKIMPrivateKey,
	})
	if err != nil {
		logger.Log.Error("Invalid DKIM configuration", "error", err)
		os.Exit(1)
	}
	emailService := email.NewEmailService(cfg, signer)
	if !emailService.IsConfigured() {
		logger.Log.Warn("Email service not fully configured - submissions will fail to send")
	}

	// 4. Setup Redis (optional, rate limiting)
	var (
		scripter goredis.Scripter
		cmdable  goredis.Cmdable
	)
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:      cfg.UpstashRedisURL,
		Password: cfg.UpstashRedisPassword,
	})
	switch {
	case err == nil:
		defer redisClient.Close()
		scripter = redisClient
		cmdable = redisClient
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	case errors.Is(err, redis.ErrNotConfigured):
		// in-memory counters
	default:
		logger.Log.Warn("Redis unavailable, rate limiting falls back to memory", "error", err)
	}

	// 5. Setup Auth Provider
	tokens := auth.NewTokenIssuer(cfg.AuthTokenSecret, cfg.AuthTokenTTL)
	var authProvider domain.AuthProvider = auth.NewSimulatedProvider(tokens)
	if cfg.AuthProvider == config.AuthProviderPostgres {
		dbPool, err := database.NewPostgresPool(ctx, cfg.DBUrl)
		if err != nil {
			logger.Log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := postgres.EnsureAccountSchema(ctx, dbPool); err != nil {
			logger.Log.Error("Failed to prepare account schema", "error", err)
			os.Exit(1)
		}
		authProvider = auth.NewBackendProvider(postgres.NewAccountRepository(dbPool), tokens)
		healthChecks["database"] = dbPool.Ping
	}
	authProvider = auth.WithLoginLockout(authProvider, security.NewLoginTracker(cmdable, security.DefaultLoginTrackerConfig()))

	// 6. Setup UseCases
	scanner := antivirus.FromAddress(cfg.ClamAVAddress, cfg.ClamAVTimeout)
	submissionUC := usecase.NewSubmissionUsecase(emailService, scanner, validation.New(), usecase.SubmissionConfig{
		Recipient:         cfg.ContactEmailTo,
		SendTimeout:       cfg.MailSendTimeout,
		StrictAttachments: cfg.AttachmentStrictTypes,
	})
	carts := memory.NewCartRegistry(v1.CartSessionTTL, metrics.SetActiveCarts)
	cartUC := usecase.NewCartUsecase(carts)
	healthUC := usecase.NewHealthUsecase(emailService, healthChecks)

	// 7. Setup Router
	limiter := middleware.NewRateLimiter(scripter)
	router := v1.NewRouter(v1.RouterDeps{
		SubmissionUC: submissionUC,
		CartUC:       cartUC,
		HealthUC:     healthUC,
		AuthProvider: authProvider,
		Tokens:       tokens,
		Spool:        storage.NewSpool(cfg.UploadSpoolDir),
		RateLimiter:  limiter,
		Config:       cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info("HTTP server listening", "addr", srv.Addr, "scanner", scanner.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		limiter.Cleanup(gctx, 5*time.Minute)
		return nil
	})

	g.Go(func() error {
		carts.Cleanup(gctx, time.Hour)
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Log.Info("Server exiting")
}
