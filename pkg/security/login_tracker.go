package security

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // Failed attempts before block (default: 5)
	AttemptWindow time.Duration // Window for counting attempts (default: 15min)
	BlockDuration time.Duration // How long a block lasts (default: 15min)
}

func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}
}

// Redis key patterns
const (
	failLoginPrefix    = "fail:login:"
	blockedLoginPrefix = "blocked:login:"
)

// Atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
var incrWithTTLScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

type loginAttempts struct {
	count        int
	windowEnd    time.Time
	blockedUntil time.Time
}

// LoginTracker counts failed logins per email and blocks an email after too many.
// With a nil Redis client the counters live in process memory.
type LoginTracker struct {
	client goredis.Cmdable
	config LoginTrackerConfig
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string]*loginAttempts
}

func NewLoginTracker(client goredis.Cmdable, config LoginTrackerConfig) *LoginTracker {
	def := DefaultLoginTrackerConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = def.AttemptWindow
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = def.BlockDuration
	}
	return &LoginTracker{
		client:   client,
		config:   config,
		now:      time.Now,
		attempts: make(map[string]*loginAttempts),
	}
}

func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsBlocked reports whether email is currently blocked
func (lt *LoginTracker) IsBlocked(ctx context.Context, email string) (bool, error) {
	key := normalizeKey(email)

	if lt.client != nil {
		exists, err := lt.client.Exists(ctx, blockedLoginPrefix+key).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check login block: %w", err)
		}
		return exists > 0, nil
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()
	a, ok := lt.attempts[key]
	return ok && lt.now().Before(a.blockedUntil), nil
}

// RecordFailure counts a failed attempt and reports whether email is now blocked
func (lt *LoginTracker) RecordFailure(ctx context.Context, email string) (bool, error) {
	key := normalizeKey(email)

	if lt.client != nil {
		ttl := int(lt.config.AttemptWindow.Seconds())
		count, err := incrWithTTLScript.Run(ctx, lt.client, []string{failLoginPrefix + key}, ttl).Int()
		if err != nil {
			return false, fmt.Errorf("failed to count login failure: %w", err)
		}
		if count < lt.config.MaxAttempts {
			return false, nil
		}
		if err := lt.client.Set(ctx, blockedLoginPrefix+key, "1", lt.config.BlockDuration).Err(); err != nil {
			return true, fmt.Errorf("failed to set login block: %w", err)
		}
		return true, nil
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	now := lt.now()
	a, ok := lt.attempts[key]
	if !ok || now.After(a.windowEnd) {
		a = &loginAttempts{windowEnd: now.Add(lt.config.AttemptWindow), blockedUntil: blockedUntil(a)}
		lt.attempts[key] = a
	}
	a.count++
	if a.count >= lt.config.MaxAttempts {
		a.blockedUntil = now.Add(lt.config.BlockDuration)
		return true, nil
	}
	return false, nil
}

func blockedUntil(a *loginAttempts) time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.blockedUntil
}

// Clear forgets failed attempts after a successful login
func (lt *LoginTracker) Clear(ctx context.Context, email string) error {
	key := normalizeKey(email)

	if lt.client != nil {
		if err := lt.client.Del(ctx, failLoginPrefix+key).Err(); err != nil {
			return fmt.Errorf("failed to clear login attempts: %w", err)
		}
		return nil
	}

	lt.mu.Lock()
	delete(lt.attempts, key)
	lt.mu.Unlock()
	return nil
}
