// internal/service/order/domain/port/events.go
package port

import (
	"context"
	"time"

	"pedidos/internal/service/order/domain"
)

// OrderEvent 是对外发布的订单生命周期事件。
type OrderEvent struct {
	OrderID    string                  `json:"orderId"`
	Number     string                  `json:"number"`
	CustomerID string                  `json:"customerId"`
	Status     domain.Status           `json:"status"`
	Type       domain.NotificationType `json:"type"`
	OccurredAt time.Time               `json:"occurredAt"`
}

// EventPublisher 把订单生命周期事件发布给下游消费者。
// 发布在事务之外尽力而为：失败记录日志，不影响请求结果。
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent)
}
