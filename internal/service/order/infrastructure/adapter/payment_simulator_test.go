// internal/service/order/infrastructure/adapter/payment_simulator_test.go
package adapter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedidos/internal/service/order/domain"
	"pedidos/internal/service/order/domain/port"
)

func cardRequest(token, brand string) port.PaymentRequest {
	return port.PaymentRequest{
		OrderID:   "order-1",
		Amount:    decimal.NewFromFloat(99.90),
		Method:    domain.MethodCard,
		CardToken: token,
		CardBrand: brand,
	}
}

func TestProcess_CardRequiresTokenAndBrand(t *testing.T) {
	sim := NewPaymentSimulatorAdapter()

	_, err := sim.Process(context.Background(), cardRequest("", "VISA"))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cardToken", vErr.Field)

	_, err = sim.Process(context.Background(), cardRequest("tok-abc", "   "))
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cardBrand", vErr.Field)
}

func TestProcess_CardProducesFreshReferencePerAttempt(t *testing.T) {
	sim := NewPaymentSimulatorAdapter()

	refs := make(map[string]bool)
	for i := 0; i < 20; i++ {
		outcome, err := sim.Process(context.Background(), cardRequest("tok-abc", "VISA"))
		require.NoError(t, err)
		assert.Contains(t, []domain.PaymentStatus{domain.PaymentApproved, domain.PaymentRejected}, outcome.Status)
		assert.True(t, len(outcome.ExternalRef) > 3 && outcome.ExternalRef[:3] == "TX-")
		refs[outcome.ExternalRef] = true
	}
	// 每次尝试都是全新的交易引用，成功与否无关
	assert.Len(t, refs, 20)
}

func TestProcess_BoletoPendsWithDigitableLine(t *testing.T) {
	sim := NewPaymentSimulatorAdapter()

	outcome, err := sim.Process(context.Background(), port.PaymentRequest{
		OrderID: "order-1",
		Amount:  decimal.NewFromFloat(99.90),
		Method:  domain.MethodBoleto,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentPending, outcome.Status)
	require.Len(t, outcome.BoletoLine, 47)
	for _, c := range outcome.BoletoLine {
		assert.True(t, c >= '0' && c <= '9', "digitable line must be numeric, got %q", c)
	}
}

func TestProcess_PixApprovesImmediately(t *testing.T) {
	sim := NewPaymentSimulatorAdapter()

	outcome, err := sim.Process(context.Background(), port.PaymentRequest{
		OrderID: "order-1",
		Amount:  decimal.NewFromFloat(99.90),
		Method:  domain.MethodPix,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentApproved, outcome.Status)
	assert.NotEmpty(t, outcome.PixTxID)
	assert.Equal(t, outcome.PixTxID, outcome.ExternalRef)
}

func TestProcess_UnknownMethod(t *testing.T) {
	sim := NewPaymentSimulatorAdapter()

	_, err := sim.Process(context.Background(), port.PaymentRequest{Method: domain.PaymentMethod("CHEQUE")})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}
