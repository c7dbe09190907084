// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxSignInAttempts   = 5
	signInAttemptWindow = 15 * time.Minute
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckSignInAttempt counts an attempt and reports whether it is allowed
// along with the attempts left in the current window.
func (r *RateLimiter) CheckSignInAttempt(ctx context.Context, ip, email string) (bool, int64, error) {
	key := signInKey(ip, email)

	var (
		incr   *redis.IntCmd
		expire *redis.BoolCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// NX leaves a running window alone and repairs a key that lost its TTL
		expire = pipe.ExpireNX(ctx, key, signInAttemptWindow)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment sign-in attempt: %w", err)
	}
	if err := expire.Err(); err != nil {
		return false, 0, fmt.Errorf("failed to set sign-in attempt window: %w", err)
	}
	count := incr.Val()

	remaining := maxSignInAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxSignInAttempts, remaining, nil
}

// ResetSignInAttempts resets the attempt counter after a successful sign-in
func (r *RateLimiter) ResetSignInAttempts(ctx context.Context, ip, email string) error {
	return r.client.Del(ctx, signInKey(ip, email)).Err()
}

func signInKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:signin:%s:%s", ip, email)
}
