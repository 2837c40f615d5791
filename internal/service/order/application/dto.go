// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"pedidos/internal/service/order/domain"
)

// CreateOrderRequest 是创建订单的应用层 DTO。
// IdempotencyKey 可选：携带时保证重试不会产生重复订单。
type CreateOrderRequest struct {
	CustomerID     string            `json:"customerId"`
	AddressID      string            `json:"addressId"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Items          []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

// ConfirmOrderRequest 确认订单并发起支付。
// ExpectedVersion 是调用方读取订单时拿到的版本号，作为乐观并发令牌。
// 卡支付只接受预先令牌化的表示，绝不接受原始卡号。
type ConfirmOrderRequest struct {
	ExpectedVersion int    `json:"expectedVersion"`
	Method          string `json:"method"`
	CardToken       string `json:"cardToken,omitempty"`
	CardBrand       string `json:"cardBrand,omitempty"`
}

type CancelOrderRequest struct {
	ExpectedVersion int `json:"expectedVersion"`
}

type AdvanceOrderRequest struct {
	ExpectedVersion int    `json:"expectedVersion"`
	NextStatus      string `json:"nextStatus"`
}

// OrderResponse 是订单聚合的对外视图。
type OrderResponse struct {
	ID             string              `json:"id"`
	Number         string              `json:"number"`
	CustomerID     string              `json:"customerId"`
	AddressID      string              `json:"addressId"`
	Status         domain.Status       `json:"status"`
	Total          decimal.Decimal     `json:"total"`
	Version        int                 `json:"version"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	PaidAt         *time.Time          `json:"paidAt,omitempty"`
	CanceledAt     *time.Time          `json:"canceledAt,omitempty"`
	IdempotencyKey string              `json:"idempotencyKey,omitempty"`
}

type OrderItemResponse struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PaymentResponse 是支付记录的对外视图。
type PaymentResponse struct {
	ID          string               `json:"id"`
	OrderID     string               `json:"orderId"`
	Method      domain.PaymentMethod `json:"method"`
	Status      domain.PaymentStatus `json:"status"`
	Amount      decimal.Decimal      `json:"amount"`
	ExternalRef string               `json:"externalRef,omitempty"`
	Message     string               `json:"message,omitempty"`
	BoletoLine  string               `json:"boletoLine,omitempty"`
	PixTxID     string               `json:"pixTxId,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// 确认操作的业务结果。PAYMENT_DECLINED 是业务结果而非故障：
// 被拒的支付记录照常落库提交。
const (
	OutcomeApproved = "APPROVED"
	OutcomePending  = "PENDING_SETTLEMENT"
	OutcomeDeclined = "PAYMENT_DECLINED"
)

// ConfirmOrderResponse 汇总确认操作的结果。
type ConfirmOrderResponse struct {
	Outcome string           `json:"outcome"`
	Order   *OrderResponse   `json:"order"`
	Payment *PaymentResponse `json:"payment"`
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:             o.ID,
		Number:         o.Number,
		CustomerID:     o.CustomerID,
		AddressID:      o.AddressID,
		Status:         o.Status,
		Total:          o.Total,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		PaidAt:         o.PaidAt,
		CanceledAt:     o.CanceledAt,
		IdempotencyKey: o.IdempotencyKey,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return resp
}

func toPaymentResponse(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Method:      p.Method,
		Status:      p.Status,
		Amount:      p.Amount,
		ExternalRef: p.ExternalRef,
		Message:     p.Message,
		BoletoLine:  p.BoletoLine,
		PixTxID:     p.PixTxID,
		CreatedAt:   p.CreatedAt,
	}
}
