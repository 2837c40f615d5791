// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 是订单表的数据库模型。
// 订单号、幂等键上有唯一约束；金额统一存为 DECIMAL(10,2)。
type OrderModel struct {
	ID             string          `gorm:"primaryKey;size:36"`
	Number         string          `gorm:"size:32;uniqueIndex;not null"`
	CustomerID     string          `gorm:"size:36;index;not null"`
	AddressID      string          `gorm:"size:36;not null"`
	IdempotencyKey *string         `gorm:"size:64;uniqueIndex"`
	Status         string          `gorm:"size:16;index;not null"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Version        int             `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
	PaidAt         *time.Time
	CanceledAt     *time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 行项目表：下单时刻的商品快照，归属且仅归属一个订单。
type OrderItemModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OrderID     string          `gorm:"size:36;index;not null"`
	ProductID   string          `gorm:"size:36;not null"`
	ProductName string          `gorm:"size:255;not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity    int             `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// PaymentModel 支付表：单记录 + method 判别字段承载三种支付变体。
type PaymentModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	OrderID     string          `gorm:"size:36;uniqueIndex;not null"`
	Method      string          `gorm:"size:16;not null"`
	Status      string          `gorm:"size:16;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ExternalRef string          `gorm:"size:64"`
	Message     string          `gorm:"size:255"`
	CardToken   string          `gorm:"size:64"`
	CardBrand   string          `gorm:"size:32"`
	BoletoLine  string          `gorm:"size:64"`
	PixTxID     string          `gorm:"size:64"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (PaymentModel) TableName() string { return "payments" }

// NotificationModel 通知表：只追加。
type NotificationModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OrderID    string    `gorm:"size:36;index;not null"`
	CustomerID string    `gorm:"size:36;index;not null"`
	Type       string    `gorm:"size:32;not null"`
	Message    string    `gorm:"size:255;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (NotificationModel) TableName() string { return "notifications" }
