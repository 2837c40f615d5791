// internal/service/order/domain/order.go
package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体。
// 订单与其行项目作为同一个一致性单元持久化和修改；
// Version 是乐观并发控制的令牌，每次变更严格加一。
type Order struct {
	ID             string
	Number         string
	CustomerID     string
	AddressID      string
	IdempotencyKey string
	Status         Status
	Items          []Item
	Total          decimal.Decimal
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	CanceledAt     *time.Time
}

// Item 是订单行项目：下单时刻商品信息的不可变快照，
// 与商品目录后续的变动解耦。创建后不再修改。
type Item struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// ItemInput 是创建订单时调用方提供的行项目数据。
type ItemInput struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// NewOrder 是订单聚合的工厂函数。
// 它计算每行小计与订单总额（金额保留两位小数），生成订单号，
// 并将订单置于初始状态 NEW、版本 0。
func NewOrder(customerID, addressID string, items []ItemInput, idempotencyKey string) (*Order, error) {
	if customerID == "" {
		return nil, NewValidationError("customerId", "must not be empty")
	}
	if addressID == "" {
		return nil, NewValidationError("addressId", "must not be empty")
	}
	if len(items) == 0 {
		return nil, NewValidationError("items", "order must contain at least one item")
	}

	now := time.Now()
	order := &Order{
		ID:             uuid.New().String(),
		Number:         newOrderNumber(now),
		CustomerID:     customerID,
		AddressID:      addressID,
		IdempotencyKey: idempotencyKey,
		Status:         StatusNew,
		Total:          decimal.Zero,
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for i, in := range items {
		if in.Quantity < 1 {
			return nil, NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if in.ProductID == "" {
			return nil, NewValidationError(fmt.Sprintf("items[%d].productId", i), "must not be empty")
		}
		if in.UnitPrice.IsNegative() {
			return nil, NewValidationError(fmt.Sprintf("items[%d].unitPrice", i), "must not be negative")
		}
		unitPrice := in.UnitPrice.Round(2)
		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2)
		order.Items = append(order.Items, Item{
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			UnitPrice:   unitPrice,
			Quantity:    in.Quantity,
			Subtotal:    subtotal,
		})
		order.Total = order.Total.Add(subtotal)
	}
	order.Total = order.Total.Round(2)

	return order, nil
}

// newOrderNumber 生成 PED<毫秒时间戳><随机后缀> 格式的订单号。
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("PED%d%04d", now.UnixMilli(), rand.Intn(10000))
}

// MarkProcessing 将订单转入支付处理中（boleto 等待异步结算）。
func (o *Order) MarkProcessing() error {
	return o.transition(StatusProcessing)
}

// MarkPaid 将订单标记为已支付。
func (o *Order) MarkPaid(at time.Time) error {
	if err := o.transition(StatusPaid); err != nil {
		return err
	}
	o.PaidAt = &at
	return nil
}

// Cancel 取消订单。仅允许从 NEW/PROCESSING 发起：
// 已支付及之后的订单不可取消。
func (o *Order) Cancel(at time.Time) error {
	if !o.Status.IsCancelable() {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}
	if err := o.transition(StatusCanceled); err != nil {
		return err
	}
	o.CanceledAt = &at
	return nil
}

// Advance 推进履约状态，仅限 PAID → SHIPPED → DELIVERED。
func (o *Order) Advance(next Status) error {
	if next != StatusShipped && next != StatusDelivered {
		return fmt.Errorf("%w: %s is not a fulfillment status", ErrInvalidTransition, next)
	}
	return o.transition(next)
}

// CheckVersion 比对调用方持有的版本号，用于乐观并发控制。
// 不匹配时返回 ErrConcurrencyConflict，且不做任何变更。
func (o *Order) CheckVersion(expected int) error {
	if o.Version != expected {
		return fmt.Errorf("%w: expected version %d, current is %d", ErrConcurrencyConflict, expected, o.Version)
	}
	return nil
}

// transition 执行一次状态流转：校验合法性、递增版本、刷新修改时间。
func (o *Order) transition(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.Version++
	o.UpdatedAt = time.Now()
	return nil
}
