// internal/service/order/domain/port/cache.go
package port

import "context"

// IdempotencyCache 是幂等键到订单 ID 的快路径缓存。
// 数据库唯一索引才是幂等性的最终裁决者：缓存未命中或指向
// 已不存在的订单时，调用方必须回源查库。
type IdempotencyCache interface {
	// Lookup 查询缓存；未命中时返回空串，不算错误。
	Lookup(ctx context.Context, key string) (orderID string, err error)
	// Remember 写入映射，尽力而为，失败只记录不阻断主流程。
	Remember(ctx context.Context, key, orderID string)
}
