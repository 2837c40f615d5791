// internal/service/order/application/service_test.go
package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"pedidos/internal/service/order/domain"
	"pedidos/internal/service/order/domain/port"
)

// fakeOrderRepo 在内存中模拟订单仓储的并发语义：
// FindByID 返回副本，Update 按旧版本号匹配，未命中返回冲突。
type fakeOrderRepo struct {
	orders    map[string]*domain.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	if order.IdempotencyKey != "" {
		for _, o := range r.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return domain.ErrDuplicateIdempotencyKey
			}
		}
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *fakeOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.IdempotencyKey == key {
			clone := *o
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) FindByCustomer(_ context.Context, customerID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	stored, ok := r.orders[order.ID]
	if !ok || stored.Version != order.Version-1 {
		return domain.ErrConcurrencyConflict
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, order *domain.Order) error {
	delete(r.orders, order.ID)
	return nil
}

func (r *fakeOrderRepo) OwnerOf(_ context.Context, orderID string) (string, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return o.CustomerID, nil
}

type fakePaymentRepo struct {
	byOrder map[string]*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byOrder: make(map[string]*domain.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	clone := *p
	r.byOrder[p.OrderID] = &clone
	return nil
}

func (r *fakePaymentRepo) FindByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	p, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *domain.Payment) error {
	if _, ok := r.byOrder[p.OrderID]; !ok {
		return domain.ErrNotFound
	}
	clone := *p
	r.byOrder[p.OrderID] = &clone
	return nil
}

type fakeNotifRepo struct {
	appended []*domain.Notification
}

func (r *fakeNotifRepo) Append(_ context.Context, n *domain.Notification) error {
	r.appended = append(r.appended, n)
	return nil
}

func (r *fakeNotifRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range r.appended {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

// fakeProcessor 返回预设的支付结果并记录收到的请求。
type fakeProcessor struct {
	outcome port.PaymentOutcome
	err     error
	lastReq port.PaymentRequest
}

func (p *fakeProcessor) Process(_ context.Context, req port.PaymentRequest) (port.PaymentOutcome, error) {
	p.lastReq = req
	return p.outcome, p.err
}

type fakeCache struct {
	entries    map[string]string
	remembered []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Lookup(_ context.Context, key string) (string, error) {
	return c.entries[key], nil
}

func (c *fakeCache) Remember(_ context.Context, key, orderID string) {
	c.entries[key] = orderID
	c.remembered = append(c.remembered, key)
}

type fakePublisher struct {
	events []port.OrderEvent
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, event port.OrderEvent) {
	p.events = append(p.events, event)
}

type serviceFixture struct {
	svc       *OrderApplicationService
	orders    *fakeOrderRepo
	payments  *fakePaymentRepo
	notifs    *fakeNotifRepo
	processor *fakeProcessor
	cache     *fakeCache
	publisher *fakePublisher
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		orders:    newFakeOrderRepo(),
		payments:  newFakePaymentRepo(),
		notifs:    &fakeNotifRepo{},
		processor: &fakeProcessor{},
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
	}
	f.svc = NewOrderApplicationService(
		f.orders, f.payments, f.notifs,
		f.processor, f.cache, f.publisher,
		noop.NewTracerProvider().Tracer("test"),
	)
	return f
}

func createRequest(idempotencyKey string) *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerID:     "cust-1",
		AddressID:      "addr-1",
		IdempotencyKey: idempotencyKey,
		Items: []CreateOrderItem{
			{ProductID: "p-1", ProductName: "Cafeteira", UnitPrice: decimal.NewFromFloat(249.90), Quantity: 1},
		},
	}
}

func (f *serviceFixture) mustCreate(t *testing.T, key string) *OrderResponse {
	t.Helper()
	resp, existed, err := f.svc.CreateOrder(context.Background(), createRequest(key))
	require.NoError(t, err)
	require.False(t, existed)
	return resp
}

func TestCreateOrder_NewOrder(t *testing.T) {
	f := newFixture()

	resp, existed, err := f.svc.CreateOrder(context.Background(), createRequest("key-1"))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, domain.StatusNew, resp.Status)
	assert.Equal(t, 0, resp.Version)

	require.Len(t, f.notifs.appended, 1)
	assert.Equal(t, domain.NotifyOrderCreated, f.notifs.appended[0].Type)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, resp.ID, f.publisher.events[0].OrderID)
	assert.Contains(t, f.cache.remembered, "key-1")
}

func TestCreateOrder_IdempotentRetryReturnsSameOrder(t *testing.T) {
	f := newFixture()
	first := f.mustCreate(t, "key-1")

	second, existed, err := f.svc.CreateOrder(context.Background(), createRequest("key-1"))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.ID, second.ID)

	// 重试不应产生新的通知或事件
	assert.Len(t, f.notifs.appended, 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestCreateOrder_LostRaceReturnsWinnersOrder(t *testing.T) {
	f := newFixture()
	winner := f.mustCreate(t, "key-1")

	// 模拟竞速落败：快路径没查到，Create 在唯一索引上撞车
	f.orders.createErr = domain.ErrDuplicateIdempotencyKey
	f.cache.entries = map[string]string{}

	// 落败后回读不到胜者（键不同）时错误向上传递
	_, _, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		CustomerID:     "cust-1",
		AddressID:      "addr-1",
		IdempotencyKey: "key-404", // 键不同步于内存状态，直接命中 createErr
		Items:          createRequest("").Items,
	})
	require.Error(t, err)

	// 用真实的键重试则拿到胜者的订单
	resp, existed, err := f.svc.CreateOrder(context.Background(), createRequest("key-1"))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, winner.ID, resp.ID)
}

func TestCreateOrder_StaleCacheFallsBackToDatabase(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "key-1")

	// 缓存指向一个不存在的订单（曾被回滚）：必须回源数据库判定
	f.cache.entries["key-1"] = "order-that-was-rolled-back"

	resp, existed, err := f.svc.CreateOrder(context.Background(), createRequest("key-1"))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, order.ID, resp.ID)
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	f := newFixture()

	req := createRequest("")
	req.Items = nil
	_, _, err := f.svc.CreateOrder(context.Background(), req)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, f.orders.orders)
}

func TestConfirmOrder_CardApproved(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{
		Status:      domain.PaymentApproved,
		ExternalRef: "TX-1",
		Message:     "approved",
	}

	resp, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "CARD",
		CardToken:       "tok-abc",
		CardBrand:       "VISA",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApproved, resp.Outcome)
	assert.Equal(t, domain.StatusPaid, resp.Order.Status)
	assert.Equal(t, 1, resp.Order.Version)
	assert.NotNil(t, resp.Order.PaidAt)
	assert.Equal(t, domain.PaymentApproved, resp.Payment.Status)
	assert.Equal(t, "tok-abc", f.processor.lastReq.CardToken)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
}

func TestConfirmOrder_CardDeclinedLeavesOrderUntouched(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{
		Status:      domain.PaymentRejected,
		ExternalRef: "TX-2",
		Message:     "declined by issuer",
	}

	resp, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "CARD",
		CardToken:       "tok-abc",
		CardBrand:       "VISA",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDeclined, resp.Outcome)
	assert.Equal(t, domain.StatusNew, resp.Order.Status)
	assert.Equal(t, 0, resp.Order.Version)

	// 被拒的支付记录照常持久化
	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRejected, payment.Status)
}

func TestConfirmOrder_BoletoPendsSettlement(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{
		Status:      domain.PaymentPending,
		ExternalRef: "BOL-1",
		BoletoLine:  "00190500954014481606906809350314337370000000100",
	}

	resp, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "BOLETO",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, resp.Outcome)
	assert.Equal(t, domain.StatusProcessing, resp.Order.Status)
	assert.Equal(t, domain.PaymentPending, resp.Payment.Status)
	assert.Len(t, resp.Payment.BoletoLine, 47)
}

func TestConfirmOrder_UnknownMethod(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")

	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{Method: "CHEQUE"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "method", vErr.Field)
}

func TestConfirmOrder_VersionMismatchFailsWithoutSideEffects(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")

	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 7,
		Method:          "PIX",
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	stored, findErr := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatusNew, stored.Status)
	_, findErr = f.payments.FindByOrderID(context.Background(), order.ID)
	assert.ErrorIs(t, findErr, domain.ErrNotFound)
}

// 两个调用方各自读到版本 0；先取消的一方成功，随后的确认必须失败。
func TestConfirmOrder_LosesRaceAgainstCancel(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentApproved, ExternalRef: "TX-1"}

	_, err := f.svc.CancelOrder(context.Background(), order.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "PIX",
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	stored, findErr := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
}

func TestCancelOrder_RejectsPendingPayment(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentPending, ExternalRef: "BOL-1"}
	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "BOLETO",
	})
	require.NoError(t, err)

	resp, err := f.svc.CancelOrder(context.Background(), order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, resp.Status)
	assert.NotNil(t, resp.CanceledAt)

	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRejected, payment.Status)
}

func TestCancelOrder_AfterPaymentIsRejected(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentApproved, ExternalRef: "TX-1"}
	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "PIX",
	})
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), order.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkBoletoPaid_SettlesPaymentAndOrderTogether(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentPending, ExternalRef: "BOL-1"}
	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "BOLETO",
	})
	require.NoError(t, err)

	resp, err := f.svc.MarkBoletoPaid(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeApproved, resp.Outcome)
	assert.Equal(t, domain.StatusPaid, resp.Order.Status)
	assert.Equal(t, domain.PaymentApproved, resp.Payment.Status)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestMarkBoletoPaid_RejectsNonBoletoPayment(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentApproved, ExternalRef: "TX-1"}
	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "PIX",
	})
	require.NoError(t, err)

	_, err = f.svc.MarkBoletoPaid(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvanceFulfillment(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentApproved, ExternalRef: "TX-1"}
	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "PIX",
	})
	require.NoError(t, err)

	shipped, err := f.svc.AdvanceFulfillment(context.Background(), order.ID, &AdvanceOrderRequest{
		ExpectedVersion: 1,
		NextStatus:      "SHIPPED",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, shipped.Status)
	assert.Equal(t, 2, shipped.Version)

	// 不能跳到 CANCELED，也不能用过期版本号
	_, err = f.svc.AdvanceFulfillment(context.Background(), order.ID, &AdvanceOrderRequest{
		ExpectedVersion: 2,
		NextStatus:      "CANCELED",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.AdvanceFulfillment(context.Background(), order.ID, &AdvanceOrderRequest{
		ExpectedVersion: 1,
		NextStatus:      "DELIVERED",
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	_, err = f.svc.AdvanceFulfillment(context.Background(), order.ID, &AdvanceOrderRequest{
		ExpectedVersion: 2,
		NextStatus:      "INVALID",
	})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetOrder(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteOrder_RemovesAggregate(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")

	require.NoError(t, f.svc.DeleteOrder(context.Background(), order.ID))

	_, err := f.svc.GetOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOwnerOf(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")

	owner, err := f.svc.OwnerOf(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", owner)

	_, err = f.svc.OwnerOf(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// 通知是只追加的事实记录：每个生命周期动作都留痕。
func TestLifecycleAppendsNotifications(t *testing.T) {
	f := newFixture()
	order := f.mustCreate(t, "")
	f.processor.outcome = port.PaymentOutcome{Status: domain.PaymentApproved, ExternalRef: "TX-1"}

	_, err := f.svc.ConfirmOrder(context.Background(), order.ID, &ConfirmOrderRequest{
		ExpectedVersion: 0,
		Method:          "PIX",
	})
	require.NoError(t, err)
	_, err = f.svc.AdvanceFulfillment(context.Background(), order.ID, &AdvanceOrderRequest{
		ExpectedVersion: 1,
		NextStatus:      "SHIPPED",
	})
	require.NoError(t, err)

	notifs, err := f.notifs.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, notifs, 3)
	assert.Equal(t, domain.NotifyOrderCreated, notifs[0].Type)
	assert.Equal(t, domain.NotifyOrderPaid, notifs[1].Type)
	assert.Equal(t, domain.NotifyOrderShipped, notifs[2].Type)

	var deliveredAt []time.Time
	for _, e := range f.publisher.events {
		deliveredAt = append(deliveredAt, e.OccurredAt)
	}
	assert.Len(t, deliveredAt, 3)
}
