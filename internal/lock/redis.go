package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey — ключ блокировки в Redis по умолчанию.
const DefaultRedisKey = "followup:pass-lock"

// releaseScript удаляет ключ, только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis — блокировка через SET NX PX.
//
// TTL должен покрывать проход вместе с последней записью и Release
// (scheduler.LockTTL), иначе блокировка истечёт раньше.
type Redis struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedis создаёт Redis locker.
func NewRedis(client redis.Cmdable, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

// TryAcquire пытается захватить блокировку.
func (r *Redis) TryAcquire(ctx context.Context) (Release, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis release: %w", err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return release, true, nil
}

// NewRedisClient создаёт клиент и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
