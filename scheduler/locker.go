package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTaken = errors.New("lock is held by another replica")

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another replica is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker lets only one replica run a job at a time. A lock expires after
// ttl in case the holder dies without unlocking.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	if client == nil {
		panic("missing redis client")
	}

	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	lockKey := "lock:scheduler:" + key
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("could not acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return nil, ErrLockTaken
	}

	return redisLock{client: l.client, key: lockKey, token: token}, nil
}

type redisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

func (l redisLock) Unlock(ctx context.Context) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("could not release lock %s: %w", l.key, err)
	}
	return nil
}
