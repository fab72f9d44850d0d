package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBUrl       string
	FrontendURL string
	// SMTP Configuration
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromEmail   string // Sender shown in the From header (defaults to the SMTP login)
	ContactEmailTo  string // Operator mailbox receiving every submission
	MailSendTimeout time.Duration
	// DKIM (optional)
	DKIMSelector   string
	DKIMDomain     string
	DKIMKeyPath    string
	DKIMPrivateKey string
	// Uploads
	MaxUploadBytes        int64
	UploadSpoolDir        string
	AttachmentStrictTypes bool
	ClamAVAddress         string // clamd TCP address or unix socket; empty disables scanning
	ClamAVTimeout         time.Duration
	// Authentication
	AuthProvider    string // "simulated" or "postgres"
	AuthTokenSecret string
	AuthTokenTTL    time.Duration
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds       int
	RateLimitGlobalThreshold     int
	RateLimitSubmissionThreshold int
}

const (
	AuthProviderSimulated = "simulated"
	AuthProviderPostgres  = "postgres"
)

func LoadConfig() (*Config, error) {
	// .env is only present locally; missing file is fine in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// SMTP Configuration
		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail:   getEnv("SMTP_FROM_EMAIL", ""),
		ContactEmailTo:  getEnv("CONTACT_EMAIL_TO", "frontdesk@example-health.com"),
		MailSendTimeout: getEnvDuration("MAIL_SEND_TIMEOUT", 20*time.Second),
		// DKIM
		DKIMSelector:   strings.TrimSpace(getEnv("SMTP_DKIM_SELECTOR", "")),
		DKIMDomain:     strings.TrimSpace(getEnv("SMTP_DKIM_DOMAIN", "")),
		DKIMKeyPath:    strings.TrimSpace(getEnv("SMTP_DKIM_KEY_PATH", "")),
		DKIMPrivateKey: getEnv("SMTP_DKIM_PRIVATE_KEY", ""),
		// Uploads
		MaxUploadBytes:        getEnvInt64("MAX_UPLOAD_BYTES", 10<<20), // 10 MiB
		UploadSpoolDir:        getEnv("UPLOAD_SPOOL_DIR", os.TempDir()),
		AttachmentStrictTypes: getEnvBool("ATTACHMENT_STRICT_TYPES", false),
		ClamAVAddress:         strings.TrimSpace(getEnv("CLAMAV_ADDRESS", "")),
		ClamAVTimeout:         getEnvDuration("CLAMAV_TIMEOUT", 30*time.Second),
		// Authentication
		AuthProvider:    strings.ToLower(getEnv("AUTH_PROVIDER", AuthProviderSimulated)),
		AuthTokenSecret: getEnv("AUTH_TOKEN_SECRET", ""),
		AuthTokenTTL:    getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration
		RateLimitWindowSeconds:       getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitGlobalThreshold:     getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
		RateLimitSubmissionThreshold: getEnvInt("RATE_LIMIT_SUBMISSION_THRESHOLD", 10),
	}

	if cfg.SMTPFromEmail == "" {
		cfg.SMTPFromEmail = cfg.SMTPUsername
	}

	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		log.Println("WARNING: SMTP_USERNAME/SMTP_PASSWORD not set. Submissions will fail to send.")
	}

	if cfg.AuthProvider != AuthProviderPostgres {
		cfg.AuthProvider = AuthProviderSimulated
	} else if cfg.DBUrl == "" {
		log.Println("WARNING: AUTH_PROVIDER=postgres but DATABASE_URL is missing. Falling back to simulated auth.")
		cfg.AuthProvider = AuthProviderSimulated
	}

	if cfg.AuthTokenSecret == "" {
		if isReleaseMode() {
			return nil, errors.New("AUTH_TOKEN_SECRET must be set when GIN_MODE=release")
		}
		log.Println("WARNING: AUTH_TOKEN_SECRET not set. Using an insecure development secret.")
		cfg.AuthTokenSecret = "dev-only-insecure-secret"
	}

	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// isReleaseMode reads GIN_MODE after .env is loaded; gin itself only sees the process environment at init
func isReleaseMode() bool {
	return os.Getenv(gin.EnvGinMode) == gin.ReleaseMode || gin.Mode() == gin.ReleaseMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil && intVal > 0 {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("20s") or a bare number of seconds
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
