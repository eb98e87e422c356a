package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "login_attempts:"

// LoginThrottle counts failed logins per username in Redis. Once the
// count reaches the limit, logins for that name are rejected until the
// window key expires. It throttles issuance only; already-issued tokens
// stay valid until their natural expiry.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Blocked reports whether the username has exhausted its attempts.
// Redis errors fail open: an unavailable throttle must not lock out
// every account.
func (t *LoginThrottle) Blocked(ctx context.Context, username string) bool {
	count, err := t.client.Get(ctx, throttleKeyPrefix+username).Int()
	if err != nil {
		return false
	}
	return count >= t.maxAttempts
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) {
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, throttleKeyPrefix+username)
	pipe.Expire(ctx, throttleKeyPrefix+username, t.window)
	_, _ = pipe.Exec(ctx)
}

func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	_ = t.client.Del(ctx, throttleKeyPrefix+username).Err()
}
