package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease is a single-flight guard for a background loop pass. A pass runs only
// while holding the lease, so overlapping ticks and extra replicas skip
// instead of double-processing. The TTL bounds how long a crashed holder can
// block the loop.
type Lease struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

func NewLease(rdb *redis.Client, key string, ttl time.Duration) *Lease {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Lease{
		rdb:   rdb,
		key:   key,
		token: time.Now().UTC().Format(time.RFC3339Nano),
		ttl:   ttl,
	}
}

// Acquire attempts to take the lease. A false return means another pass holds
// it and this tick should be skipped.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Release frees the lease if this holder still owns it. Expired leases owned
// by someone else are left alone.
func (l *Lease) Release(ctx context.Context) error {
	const script = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`
	return l.rdb.Eval(ctx, script, []string{l.key}, l.token).Err()
}
