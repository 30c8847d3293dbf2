package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "aphorium:lock:"

var errLockHeld = errors.New("lock held")

// unlockScript deletes a key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript resets the expiry of a key only while it still holds our token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

var _ Locker = (*Redis)(nil)

// Redis is a Locker shared by every process using the same redis instance.
// Held keys are renewed every TTL/3 until unlocked, so a key only expires
// after TTL when its holder died or lost redis for that long.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	maxWait time.Duration
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
}

func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Protocol: 2,
	})

	return NewRedisFromClient(client, cfg.TTL, cfg.MaxWait)
}

func NewRedisFromClient(client *redis.Client, ttl, maxWait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &Redis{client: client, ttl: ttl, maxWait: maxWait}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (Unlock, error) {
	keys = sortKeys(keys)
	token := uuid.New().String()

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := r.acquire(ctx, keyPrefix+key, token); err != nil {
			r.unlock(held, token)
			if errors.Is(err, errLockHeld) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, err
		}
		held = append(held, keyPrefix+key)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go r.renew(held, token, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			r.unlock(held, token)
		})
	}, nil
}

// renew extends the expiry of the held keys until done is closed.
func (r *Redis) renew(keys []string, token string, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	ttl := r.ttl.Milliseconds()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, key := range keys {
				extended, err := extendScript.Run(context.Background(), r.client, []string{key}, token, ttl).Int()
				if err != nil {
					logrus.Warnf("failed to renew lock %s: %v", key, err)
					continue
				}
				if extended == 0 {
					logrus.Errorf("lock %s expired before it was renewed", key)
				}
			}
		}
	}
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = r.maxWait

	return backoff.Retry(func() error {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func (r *Redis) unlock(keys []string, token string) {
	// unlock even when the caller's context is already cancelled
	ctx := context.Background()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := unlockScript.Run(ctx, r.client, []string{keys[i]}, token).Err(); err != nil {
			logrus.Warnf("failed to release lock %s: %v", keys[i], err)
		}
	}
}
