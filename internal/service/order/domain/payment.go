// internal/service/order/domain/payment.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod 是支付记录的变体判别字段。
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "CARD"
	MethodBoleto PaymentMethod = "BOLETO"
	MethodPix    PaymentMethod = "PIX"
)

// ValidPaymentMethod 校验字符串是否为支持的支付方式。
func ValidPaymentMethod(m string) bool {
	switch PaymentMethod(m) {
	case MethodCard, MethodBoleto, MethodPix:
		return true
	}
	return false
}

// PaymentStatus 支付记录的结算状态。
// 只允许 PENDING → APPROVED | REJECTED，之后为终态。
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// Payment 是与订单一对一的支付记录。
// 采用带判别字段的单记录建模：方法特有字段按变体可选填充，
// 避免多态存储带来的查询复杂度。
// 卡支付只保存调用方提供的令牌与品牌，原始卡号/有效期/CVV 永不落库。
type Payment struct {
	ID          string
	OrderID     string
	Method      PaymentMethod
	Status      PaymentStatus
	Amount      decimal.Decimal
	ExternalRef string
	Message     string

	// 变体字段
	CardToken  string // CARD
	CardBrand  string // CARD
	BoletoLine string // BOLETO：可录入的数字条码
	PixTxID    string // PIX

	CreatedAt time.Time
}

// NewPayment 创建一条处于 PENDING 状态的支付记录。
func NewPayment(orderID string, method PaymentMethod, amount decimal.Decimal) *Payment {
	return &Payment{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Method:    method,
		Status:    PaymentPending,
		Amount:    amount.Round(2),
		CreatedAt: time.Now(),
	}
}

// Approve 将支付从 PENDING 置为 APPROVED。终态不可再变更。
func (p *Payment) Approve(externalRef, message string) error {
	if p.Status != PaymentPending {
		return fmt.Errorf("%w: payment is already %s", ErrInvalidTransition, p.Status)
	}
	p.Status = PaymentApproved
	p.ExternalRef = externalRef
	p.Message = message
	return nil
}

// Reject 将支付从 PENDING 置为 REJECTED。终态不可再变更。
func (p *Payment) Reject(message string) error {
	if p.Status != PaymentPending {
		return fmt.Errorf("%w: payment is already %s", ErrInvalidTransition, p.Status)
	}
	p.Status = PaymentRejected
	p.Message = message
	return nil
}
