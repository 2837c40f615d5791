// internal/service/order/infrastructure/adapter/payment_simulator.go
package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"pedidos/internal/pkg/logger"
	"pedidos/internal/service/order/domain"
	"pedidos/internal/service/order/domain/port"
)

// PaymentSimulatorAdapter 是 port.PaymentProcessor 的模拟网关实现。
//   - CARD：校验令牌与品牌非空后伪随机审批，每次调用生成全新的交易引用；
//   - BOLETO：生成可录入的数字条码，返回 PENDING 等待异步结算；
//   - PIX：生成交易号并立即批准。
//
// 处理器只接受预先令牌化的卡表示，原始卡数据从不进入本服务。
type PaymentSimulatorAdapter struct {
	// cardApprovalRate 是卡支付被批准的概率，取值 (0,1]。
	cardApprovalRate float64
}

func NewPaymentSimulatorAdapter() *PaymentSimulatorAdapter {
	return &PaymentSimulatorAdapter{cardApprovalRate: 0.8}
}

func (a *PaymentSimulatorAdapter) Process(ctx context.Context, req port.PaymentRequest) (port.PaymentOutcome, error) {
	switch req.Method {
	case domain.MethodCard:
		return a.processCard(ctx, req)
	case domain.MethodBoleto:
		return a.processBoleto(ctx, req)
	case domain.MethodPix:
		return a.processPix(ctx, req)
	default:
		return port.PaymentOutcome{}, domain.NewValidationError("method", fmt.Sprintf("unsupported payment method %q", req.Method))
	}
}

func (a *PaymentSimulatorAdapter) processCard(ctx context.Context, req port.PaymentRequest) (port.PaymentOutcome, error) {
	if strings.TrimSpace(req.CardToken) == "" {
		return port.PaymentOutcome{}, domain.NewValidationError("cardToken", "must not be empty")
	}
	if strings.TrimSpace(req.CardBrand) == "" {
		return port.PaymentOutcome{}, domain.NewValidationError("cardBrand", "must not be empty")
	}

	// 每次尝试都产生一个全新的交易引用，无论审批结果如何
	ref := "TX-" + uuid.New().String()

	if rand.Float64() < a.cardApprovalRate {
		return port.PaymentOutcome{
			Status:      domain.PaymentApproved,
			ExternalRef: ref,
			Message:     "card payment approved",
		}, nil
	}
	logger.Ctx(ctx).Info().Str("order_id", req.OrderID).Msg("simulated gateway declined card payment")
	return port.PaymentOutcome{
		Status:      domain.PaymentRejected,
		ExternalRef: ref,
		Message:     "card payment declined by issuer",
	}, nil
}

func (a *PaymentSimulatorAdapter) processBoleto(_ context.Context, _ port.PaymentRequest) (port.PaymentOutcome, error) {
	// boleto 同步阶段只开票：结算由后续的外部确认完成
	return port.PaymentOutcome{
		Status:      domain.PaymentPending,
		ExternalRef: "BOL-" + uuid.New().String(),
		Message:     "boleto issued, awaiting settlement",
		BoletoLine:  newDigitableLine(),
	}, nil
}

func (a *PaymentSimulatorAdapter) processPix(_ context.Context, _ port.PaymentRequest) (port.PaymentOutcome, error) {
	txID := "PIX-" + uuid.New().String()
	return port.PaymentOutcome{
		Status:      domain.PaymentApproved,
		ExternalRef: txID,
		Message:     "pix payment approved",
		PixTxID:     txID,
	}, nil
}

// newDigitableLine 生成 47 位的模拟数字条码。
func newDigitableLine() string {
	var b strings.Builder
	for i := 0; i < 47; i++ {
		fmt.Fprintf(&b, "%d", rand.Intn(10))
	}
	return b.String()
}
