package signal

import (
	"time"

	"github.com/dkeye/Chat/internal/adapters/ratelimit"
	"github.com/dkeye/Chat/internal/domain"
)

// UserRateLimiter throttles inbound live frames per identity, so opening
// more sockets does not buy a user more throughput.
type UserRateLimiter struct {
	pool *ratelimit.Pool
}

func NewUserRateLimiter(rps float64, burst int) *UserRateLimiter {
	return &UserRateLimiter{pool: ratelimit.NewPool(rps, burst, 10*time.Minute)}
}

func (rl *UserRateLimiter) Allow(uid domain.UserID) bool {
	if rl == nil {
		return true
	}
	return rl.pool.Allow(string(uid))
}

func (rl *UserRateLimiter) Sweep() int {
	if rl == nil {
		return 0
	}
	return rl.pool.Sweep()
}
