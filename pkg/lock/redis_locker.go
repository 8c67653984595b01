package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// retryInterval 锁被占用时的重试间隔
const retryInterval = 25 * time.Millisecond

// RedisClient pkg/redis.Client 中锁相关的方法
type RedisClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Redis 基于 SET NX PX 的跨实例键锁
type Redis struct {
	client RedisClient
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedis 创建 Redis 键锁；ttl 为锁自动过期时间，wait 为最长等待时间
func NewRedis(client RedisClient, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, wait: wait, logger: logger}
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := r.acquire(ctx, waitCtx, k, token); err != nil {
			r.release(held, token)
			return nil, err
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(held, token) })
	}, nil
}

func (r *Redis) acquire(parent, waitCtx context.Context, key, token string) error {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.TryLock(waitCtx, key, token, r.ttl)
		if err != nil {
			if waitCtx.Err() != nil {
				return waitError(parent, waitCtx)
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return waitError(parent, waitCtx)
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	// 调用方的 ctx 可能已取消，释放使用独立超时
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := r.client.Unlock(ctx, keys[i], token); err != nil {
			r.logger.Warn("释放排期锁失败，等待 TTL 过期", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}
