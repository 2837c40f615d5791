// internal/service/order/domain/port/payment.go
package port

import (
	"context"

	"github.com/shopspring/decimal"

	"pedidos/internal/service/order/domain"
)

// PaymentRequest 是提交给支付处理器的输入。
// 卡支付只携带预先令牌化的表示，处理器拿不到任何原始卡数据。
type PaymentRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
	CardToken string
	CardBrand string
}

// PaymentOutcome 是支付处理器给出的结算结果。
// Status 为 PENDING 表示异步结算（boleto），需要后续外部确认。
type PaymentOutcome struct {
	Status      domain.PaymentStatus
	ExternalRef string
	Message     string
	BoletoLine  string
	PixTxID     string
}

// PaymentProcessor 按支付方式模拟结算。
// 领域层只依赖这个端口，具体网关实现在基础设施层。
type PaymentProcessor interface {
	Process(ctx context.Context, req PaymentRequest) (PaymentOutcome, error)
}
