// internal/service/order/infrastructure/mapper.go
package infrastructure

import (
	"pedidos/internal/service/order/domain"
)

// 数据库模型与领域模型之间的双向转换。

func toOrderModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:         o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		AddressID:  o.AddressID,
		Status:     string(o.Status),
		Total:      o.Total,
		Version:    o.Version,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		PaidAt:     o.PaidAt,
		CanceledAt: o.CanceledAt,
	}
	// 空幂等键存为 NULL：唯一索引只约束真正携带键的订单
	if o.IdempotencyKey != "" {
		key := o.IdempotencyKey
		m.IdempotencyKey = &key
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return m
}

func toDomainOrder(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:         m.ID,
		Number:     m.Number,
		CustomerID: m.CustomerID,
		AddressID:  m.AddressID,
		Status:     domain.Status(m.Status),
		Total:      m.Total,
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		PaidAt:     m.PaidAt,
		CanceledAt: m.CanceledAt,
	}
	if m.IdempotencyKey != nil {
		o.IdempotencyKey = *m.IdempotencyKey
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return o
}

func toPaymentModel(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Method:      string(p.Method),
		Status:      string(p.Status),
		Amount:      p.Amount,
		ExternalRef: p.ExternalRef,
		Message:     p.Message,
		CardToken:   p.CardToken,
		CardBrand:   p.CardBrand,
		BoletoLine:  p.BoletoLine,
		PixTxID:     p.PixTxID,
		CreatedAt:   p.CreatedAt,
	}
}

func toDomainPayment(m *PaymentModel) *domain.Payment {
	return &domain.Payment{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Method:      domain.PaymentMethod(m.Method),
		Status:      domain.PaymentStatus(m.Status),
		Amount:      m.Amount,
		ExternalRef: m.ExternalRef,
		Message:     m.Message,
		CardToken:   m.CardToken,
		CardBrand:   m.CardBrand,
		BoletoLine:  m.BoletoLine,
		PixTxID:     m.PixTxID,
		CreatedAt:   m.CreatedAt,
	}
}

func toNotificationModel(n *domain.Notification) *NotificationModel {
	return &NotificationModel{
		ID:         n.ID,
		OrderID:    n.OrderID,
		CustomerID: n.CustomerID,
		Type:       string(n.Type),
		Message:    n.Message,
		CreatedAt:  n.CreatedAt,
	}
}

func toDomainNotification(m *NotificationModel) *domain.Notification {
	return &domain.Notification{
		ID:         m.ID,
		OrderID:    m.OrderID,
		CustomerID: m.CustomerID,
		Type:       domain.NotificationType(m.Type),
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	}
}
