// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现；实现从请求上下文解析
// 当前工作单元的数据库句柄。
type OrderRepository interface {
	// Create 持久化一个新订单及其全部行项目。
	// 幂等键冲突时返回 ErrDuplicateIdempotencyKey。
	Create(ctx context.Context, order *Order) error

	// FindByID 按 ID 加载订单聚合（含行项目），不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByIdempotencyKey 按幂等键加载订单，不存在时返回 ErrNotFound。
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// FindByCustomer 返回某客户的全部订单，按创建时间倒序。
	FindByCustomer(ctx context.Context, customerID string) ([]*Order, error)

	// Update 按乐观并发写回订单：WHERE 条件匹配旧版本号，
	// 未命中任何行时返回 ErrConcurrencyConflict。
	Update(ctx context.Context, order *Order) error

	// Delete 删除整个聚合：先枚举删除行项目、支付与通知，最后删除订单行。
	Delete(ctx context.Context, order *Order) error

	// OwnerOf 返回订单所属客户 ID，订单不存在时返回 ErrNotFound。
	// 供所有权守卫在事务开启前使用。
	OwnerOf(ctx context.Context, orderID string) (string, error)
}

// PaymentRepository 定义了支付记录的持久化接口。
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	// FindByOrderID 返回订单的支付记录，不存在时返回 ErrNotFound。
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
}

// NotificationRepository 定义了通知记录的持久化接口。通知只追加。
type NotificationRepository interface {
	Append(ctx context.Context, n *Notification) error
	FindByOrderID(ctx context.Context, orderID string) ([]*Notification, error)
}
