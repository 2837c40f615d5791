// internal/service/order/infrastructure/adapter/idempotency_redis_adapter.go
package adapter

import (
	"context"
	"time"

	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/redis"
)

const idempotencyKeyTTL = 24 * time.Hour

// IdempotencyRedisAdapter 是 port.IdempotencyCache 的 Redis 实现。
// 它只是幂等判定的快路径：数据库唯一索引才是最终裁决者，
// 缓存的任何失败都不影响主流程。
type IdempotencyRedisAdapter struct {
	client *redis.Client
}

func NewIdempotencyRedisAdapter(client *redis.Client) *IdempotencyRedisAdapter {
	return &IdempotencyRedisAdapter{client: client}
}

func (a *IdempotencyRedisAdapter) Lookup(ctx context.Context, key string) (string, error) {
	orderID, found, err := a.client.Get(ctx, cacheKey(key))
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("idempotency cache lookup failed")
		return "", err
	}
	if !found {
		return "", nil
	}
	return orderID, nil
}

func (a *IdempotencyRedisAdapter) Remember(ctx context.Context, key, orderID string) {
	if err := a.client.Set(ctx, cacheKey(key), orderID, idempotencyKeyTTL); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("failed to cache idempotency key")
	}
}

func cacheKey(key string) string {
	return "order:idem:" + key
}
