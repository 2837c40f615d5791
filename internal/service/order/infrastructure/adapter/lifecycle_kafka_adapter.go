// internal/service/order/infrastructure/adapter/lifecycle_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/mq"
	"pedidos/internal/service/order/domain/port"
)

// LifecycleKafkaAdapter 是 port.EventPublisher 的 Kafka 实现。
// 事件发布在事务之外尽力而为：Kafka 不可用时只记录日志，
// 绝不把基础设施故障升级为请求失败。
type LifecycleKafkaAdapter struct {
	writer *kafka.Writer
}

func NewLifecycleKafkaAdapter(writer *kafka.Writer) *LifecycleKafkaAdapter {
	return &LifecycleKafkaAdapter{writer: writer}
}

func (a *LifecycleKafkaAdapter) PublishOrderEvent(ctx context.Context, event port.OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to marshal order event")
		return
	}
	// 以客户 ID 作为分区键，同一客户的事件保持有序
	if err := mq.ProduceMessage(ctx, a.writer, []byte(event.CustomerID), payload); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event to kafka")
	}
}

// Close 关闭底层的 Kafka 生产者。
func (a *LifecycleKafkaAdapter) Close() error {
	return a.writer.Close()
}
