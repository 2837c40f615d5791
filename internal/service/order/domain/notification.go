// internal/service/order/domain/notification.go
package domain

import "time"

// NotificationType 标识通知记录的业务类型。
type NotificationType string

const (
	NotifyOrderCreated   NotificationType = "ORDER_CREATED"
	NotifyOrderPaid      NotificationType = "ORDER_PAID"
	NotifyOrderCanceled  NotificationType = "ORDER_CANCELED"
	NotifyOrderShipped   NotificationType = "ORDER_SHIPPED"
	NotifyOrderDelivered NotificationType = "ORDER_DELIVERED"
)

// Notification 是面向客户的通知记录：只追加，创建后不修改不删除。
// 投递（邮件/推送等）不在本服务范围内，这里只保留持久化的事实。
type Notification struct {
	ID         uint
	OrderID    string
	CustomerID string
	Type       NotificationType
	Message    string
	CreatedAt  time.Time
}

// NewNotification 构造一条通知记录。
func NewNotification(orderID, customerID string, t NotificationType, message string) *Notification {
	return &Notification{
		OrderID:    orderID,
		CustomerID: customerID,
		Type:       t,
		Message:    message,
		CreatedAt:  time.Now(),
	}
}
