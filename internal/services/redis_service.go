package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

// luaReleaseIfMatch deletes the lock only while it still holds our token, so
// an expired lock taken over by another run is never released by us.
const luaReleaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// orderSequenceTTL keeps a day's counter past midnight in any timezone.
const orderSequenceTTL = 48 * time.Hour

// RedisService provides the shared locks and order number sequence
type RedisService struct {
	client *redis.Client
	tw     timewindow.Window
}

// NewRedisService creates a new Redis service instance
func NewRedisService(client *redis.Client, tw timewindow.Window) *RedisService {
	return &RedisService{client: client, tw: tw}
}

// TryLock takes key with SET NX for ttl.
func (r *RedisService) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		// release even when the caller's context is already gone
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.Eval(releaseCtx, luaReleaseIfMatch, []string{key}, token).Err(); err != nil {
			logging.Errorf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}

// NextOrderNumber returns ORD-YYYYMMDD-NNNNNN from a per business day counter.
func (r *RedisService) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	day := r.tw.DayKey(at)
	key := fmt.Sprintf("tiffin:order_seq:%s", day)

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("increment order sequence: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, orderSequenceTTL).Err(); err != nil {
			logging.Warnf("Failed to set TTL on %s: %v", key, err)
		}
	}
	return fmt.Sprintf("ORD-%s-%06d", day, n), nil
}

// Ping checks the connection for health reporting.
func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
