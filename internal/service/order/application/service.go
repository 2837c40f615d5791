// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/metrics"
	"pedidos/internal/service/order/domain"
	"pedidos/internal/service/order/domain/port"
)

// OrderApplicationService 负责订单用例的业务流程编排。
// 事务边界不在这里管理：工作单元由请求管道开启，
// 仓储通过上下文取到同一个事务句柄。
type OrderApplicationService struct {
	orderRepo   domain.OrderRepository
	paymentRepo domain.PaymentRepository
	notifRepo   domain.NotificationRepository
	processor   port.PaymentProcessor
	cache       port.IdempotencyCache
	publisher   port.EventPublisher
	tracer      trace.Tracer
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	paymentRepo domain.PaymentRepository,
	notifRepo domain.NotificationRepository,
	processor port.PaymentProcessor,
	cache port.IdempotencyCache,
	publisher port.EventPublisher,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		notifRepo:   notifRepo,
		processor:   processor,
		cache:       cache,
		publisher:   publisher,
		tracer:      tracer,
	}
}

// CreateOrder 创建订单，幂等键重试时返回已存在的订单。
// 第二个返回值表示订单是否已经存在（幂等命中）。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, bool, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", req.CustomerID))

	// 1. 幂等快路径：键已经被某个订单占用时，原样返回那个订单
	if req.IdempotencyKey != "" {
		if existing := s.findByIdempotencyKey(ctx, req.IdempotencyKey); existing != nil {
			span.AddEvent("idempotency key hit, returning existing order")
			return toOrderResponse(existing), true, nil
		}
	}

	// 2. 领域工厂：校验行项目、计算小计与总额
	items := make([]domain.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.ItemInput{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	order, err := domain.NewOrder(req.CustomerID, req.AddressID, items, req.IdempotencyKey)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	// 3. 持久化。并发重试会在唯一索引上竞速：落败方读出胜者的订单返回，
	//    两个调用方最终拿到同一个订单 ID。
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			winner, findErr := s.orderRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if findErr != nil {
				return nil, false, findErr
			}
			span.AddEvent("lost idempotency race, returning winner's order")
			return toOrderResponse(winner), true, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist order")
		return nil, false, err
	}

	notif := domain.NewNotification(order.ID, order.CustomerID, domain.NotifyOrderCreated,
		fmt.Sprintf("order %s has been created", order.Number))
	if err := s.notifRepo.Append(ctx, notif); err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	if s.cache != nil && req.IdempotencyKey != "" {
		s.cache.Remember(ctx, req.IdempotencyKey, order.ID)
	}
	s.publish(ctx, order, domain.NotifyOrderCreated)

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Str("number", order.Number).Msg("order created")
	return toOrderResponse(order), false, nil
}

// ConfirmOrder 确认订单并发起支付。
// 版本号不匹配立即失败，不产生任何变更；支付被拒是业务结果，
// 订单保持原状，但被拒的支付记录照常持久化。
func (s *OrderApplicationService) ConfirmOrder(ctx context.Context, orderID string, req *ConfirmOrderRequest) (*ConfirmOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ConfirmOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("payment.method", req.Method),
	)

	if !domain.ValidPaymentMethod(req.Method) {
		return nil, domain.NewValidationError("method", "must be one of CARD, BOLETO, PIX")
	}
	method := domain.PaymentMethod(req.Method)

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVersion(order, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if order.Status != domain.StatusNew {
		return nil, fmt.Errorf("%w: only NEW orders can be confirmed, order is %s", domain.ErrInvalidTransition, order.Status)
	}

	// 调用支付处理器。卡支付只传入令牌化表示。
	outcome, err := s.processor.Process(ctx, port.PaymentRequest{
		OrderID:   order.ID,
		Amount:    order.Total,
		Method:    method,
		CardToken: req.CardToken,
		CardBrand: req.CardBrand,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	payment := domain.NewPayment(order.ID, method, order.Total)
	payment.CardToken = req.CardToken
	payment.CardBrand = req.CardBrand
	payment.BoletoLine = outcome.BoletoLine
	payment.PixTxID = outcome.PixTxID
	payment.ExternalRef = outcome.ExternalRef

	resp := &ConfirmOrderResponse{}
	switch outcome.Status {
	case domain.PaymentApproved:
		if err := payment.Approve(outcome.ExternalRef, outcome.Message); err != nil {
			return nil, err
		}
		if err := order.MarkPaid(time.Now()); err != nil {
			return nil, err
		}
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return nil, err
		}
		notif := domain.NewNotification(order.ID, order.CustomerID, domain.NotifyOrderPaid,
			fmt.Sprintf("payment for order %s was approved", order.Number))
		if err := s.notifRepo.Append(ctx, notif); err != nil {
			return nil, err
		}
		s.publish(ctx, order, domain.NotifyOrderPaid)
		resp.Outcome = OutcomeApproved

	case domain.PaymentPending:
		// boleto 异步结算：订单转入 PROCESSING，等待外部确认
		if err := order.MarkProcessing(); err != nil {
			return nil, err
		}
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return nil, err
		}
		resp.Outcome = OutcomePending

	case domain.PaymentRejected:
		if err := payment.Reject(outcome.Message); err != nil {
			return nil, err
		}
		resp.Outcome = OutcomeDeclined
		span.AddEvent("payment declined, order left unchanged")

	default:
		return nil, fmt.Errorf("unexpected payment outcome status: %s", outcome.Status)
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist payment")
		return nil, err
	}
	metrics.PaymentsProcessed.WithLabelValues(string(method), string(payment.Status)).Inc()

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("method", string(method)).
		Str("outcome", resp.Outcome).
		Msg("order confirmation processed")

	resp.Order = toOrderResponse(order)
	resp.Payment = toPaymentResponse(payment)
	return resp, nil
}

// CancelOrder 取消订单。仅允许从 NEW/PROCESSING 发起。
func (s *OrderApplicationService) CancelOrder(ctx context.Context, orderID string, expectedVersion int) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVersion(order, expectedVersion); err != nil {
		return nil, err
	}
	if err := order.Cancel(time.Now()); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	// 挂起的 boleto 支付随订单取消一并置为 REJECTED
	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	switch {
	case err == nil && payment.Status == domain.PaymentPending:
		if err := payment.Reject("order was canceled before settlement"); err != nil {
			return nil, err
		}
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return nil, err
		}
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	notif := domain.NewNotification(order.ID, order.CustomerID, domain.NotifyOrderCanceled,
		fmt.Sprintf("order %s has been canceled", order.Number))
	if err := s.notifRepo.Append(ctx, notif); err != nil {
		return nil, err
	}
	s.publish(ctx, order, domain.NotifyOrderCanceled)

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order canceled")
	return toOrderResponse(order), nil
}

// AdvanceFulfillment 推进履约状态，仅限 PAID → SHIPPED → DELIVERED。
func (s *OrderApplicationService) AdvanceFulfillment(ctx context.Context, orderID string, req *AdvanceOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.AdvanceFulfillment")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.next_status", req.NextStatus),
	)

	if !domain.ValidStatus(req.NextStatus) {
		return nil, domain.NewValidationError("nextStatus", "unknown order status")
	}
	next := domain.Status(req.NextStatus)

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVersion(order, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if err := order.Advance(next); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	notifType := domain.NotifyOrderShipped
	if next == domain.StatusDelivered {
		notifType = domain.NotifyOrderDelivered
	}
	notif := domain.NewNotification(order.ID, order.CustomerID, notifType,
		fmt.Sprintf("order %s is now %s", order.Number, next))
	if err := s.notifRepo.Append(ctx, notif); err != nil {
		return nil, err
	}
	s.publish(ctx, order, notifType)

	return toOrderResponse(order), nil
}

// MarkBoletoPaid 模拟 boleto 的外部结算确认：
// 支付 PENDING→APPROVED，订单 PROCESSING→PAID，在同一个工作单元内完成。
func (s *OrderApplicationService) MarkBoletoPaid(ctx context.Context, orderID string) (*ConfirmOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.MarkBoletoPaid")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Method != domain.MethodBoleto {
		return nil, fmt.Errorf("%w: order %s has no boleto payment", domain.ErrInvalidTransition, orderID)
	}
	if err := payment.Approve(payment.ExternalRef, "boleto settled"); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	if err := order.MarkPaid(time.Now()); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	notif := domain.NewNotification(order.ID, order.CustomerID, domain.NotifyOrderPaid,
		fmt.Sprintf("boleto payment for order %s was settled", order.Number))
	if err := s.notifRepo.Append(ctx, notif); err != nil {
		return nil, err
	}
	s.publish(ctx, order, domain.NotifyOrderPaid)
	metrics.PaymentsProcessed.WithLabelValues(string(domain.MethodBoleto), string(payment.Status)).Inc()

	return &ConfirmOrderResponse{
		Outcome: OutcomeApproved,
		Order:   toOrderResponse(order),
		Payment: toPaymentResponse(payment),
	}, nil
}

// GetOrder 返回订单视图。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// ListOrders 返回某客户的全部订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, customerID string) ([]*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orderRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	resp := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	return resp, nil
}

// DeleteOrder 删除整个订单聚合（仅特权角色可达）。
// 删除顺序由仓储显式执行：行项目、支付、通知，最后是订单行。
func (s *OrderApplicationService) DeleteOrder(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "app.DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, order); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("order aggregate deleted")
	return nil
}

// OwnerOf 供所有权守卫解析订单归属。
func (s *OrderApplicationService) OwnerOf(ctx context.Context, orderID string) (string, error) {
	return s.orderRepo.OwnerOf(ctx, orderID)
}

func (s *OrderApplicationService) checkVersion(order *domain.Order, expected int) error {
	if err := order.CheckVersion(expected); err != nil {
		metrics.ConcurrencyConflicts.Inc()
		return err
	}
	return nil
}

// findByIdempotencyKey 先查缓存快路径，再回源数据库。
// 缓存可能指向已被回滚的订单，必须用数据库读校验。
func (s *OrderApplicationService) findByIdempotencyKey(ctx context.Context, key string) *domain.Order {
	if s.cache != nil {
		if orderID, err := s.cache.Lookup(ctx, key); err == nil && orderID != "" {
			if order, err := s.orderRepo.FindByID(ctx, orderID); err == nil {
				return order
			}
		}
	}
	order, err := s.orderRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil
	}
	return order
}

func (s *OrderApplicationService) publish(ctx context.Context, order *domain.Order, t domain.NotificationType) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishOrderEvent(ctx, port.OrderEvent{
		OrderID:    order.ID,
		Number:     order.Number,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Type:       t,
		OccurredAt: time.Now(),
	})
}
