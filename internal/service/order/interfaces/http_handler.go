// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"pedidos/internal/pkg/authz"
	"pedidos/internal/pkg/httpx"
	"pedidos/internal/pkg/identity"
	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/uow"
	"pedidos/internal/service/order/application"
	"pedidos/internal/service/order/domain"
)

// OrderHandler 封装了订单服务的 HTTP 处理器。
type OrderHandler struct {
	service *application.OrderApplicationService
	guard   *authz.Guard
	tx      *uow.Coordinator
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例。
func NewOrderHandler(service *application.OrderApplicationService, guard *authz.Guard, tx *uow.Coordinator) *OrderHandler {
	return &OrderHandler{service: service, guard: guard, tx: tx}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
// 每条业务路由都套上完整管道：认证 → 所有权守卫 → 事务开启 →
// 处理器 → 事务收尾（提交/回滚）→ 响应下发；异常短路到收尾阶段。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("POST /orders", h.pipeline(nil, h.createOrder))
	mux.Handle("GET /orders/{id}", h.pipeline(h.orderOwner, h.getOrder))
	mux.Handle("GET /customers/{id}/orders", h.pipeline(h.customerOwner, h.listOrders))
	mux.Handle("POST /orders/{id}/confirm", h.pipeline(h.orderOwner, h.confirmOrder))
	mux.Handle("POST /orders/{id}/cancel", h.pipeline(h.orderOwner, h.cancelOrder))

	// 履约推进、boleto 结算回调与聚合删除是运营操作，仅特权角色可达
	mux.Handle("POST /orders/{id}/fulfillment", h.pipeline(h.privilegedOnly, h.advanceFulfillment))
	mux.Handle("POST /orders/{id}/boleto/settle", h.pipeline(h.privilegedOnly, h.markBoletoPaid))
	mux.Handle("DELETE /orders/{id}", h.pipeline(h.privilegedOnly, h.deleteOrder))
}

func (h *OrderHandler) pipeline(resolve authz.OwnerResolver, handlerFn http.HandlerFunc) http.Handler {
	var handler http.Handler = h.tx.Middleware(handlerFn)
	handler = h.guard.Require(resolve)(handler)
	handler = identity.Middleware(handler)
	return httpx.Recoverer(extractTraceContext(handler))
}

// extractTraceContext 从请求头恢复上游传入的链路上下文。
func extractTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// orderOwner 解析订单归属，供守卫在事务开启前判定访问权。
// 订单不存在与订单不属于请求方对标准角色呈现同一种拒绝。
func (h *OrderHandler) orderOwner(ctx context.Context, r *http.Request) (string, bool, error) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false, authz.ErrBadResourceID
	}
	owner, err := h.service.OwnerOf(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

// customerOwner 把路径中的客户 ID 当作资源所有者：
// 标准角色只能列出自己的订单。
func (h *OrderHandler) customerOwner(_ context.Context, r *http.Request) (string, bool, error) {
	customerID := r.PathValue("id")
	if customerID == "" {
		return "", false, authz.ErrBadResourceID
	}
	return customerID, true, nil
}

// privilegedOnly 不提供所有者：标准角色一律被拒，特权角色放行。
func (h *OrderHandler) privilegedOnly(_ context.Context, _ *http.Request) (string, bool, error) {
	return "", false, nil
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}

	// 标准角色只能为自己创建订单
	id, _ := identity.FromContext(r.Context())
	if err := h.guard.Authorize(id, req.CustomerID, req.CustomerID != ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp, existed, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if existed {
		// 幂等重试：返回已存在的订单，不产生新资源
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, resp)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListOrders(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	var req application.ConfirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}
	resp, err := h.service.ConfirmOrder(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	// 支付被拒也是 200：这是业务结果，被拒的支付记录需要随事务提交
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}
	resp, err := h.service.CancelOrder(r.Context(), r.PathValue("id"), req.ExpectedVersion)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) advanceFulfillment(w http.ResponseWriter, r *http.Request) {
	var req application.AdvanceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}
	resp, err := h.service.AdvanceFulfillment(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) markBoletoPaid(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.MarkBoletoPaid(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError 把领域错误映射为结构化的 HTTP 响应。
// 未知错误一律作为内部故障返回 500，不向外暴露细节。
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", vErr.Error())
	case errors.Is(err, authz.ErrNotAuthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "missing or invalid identity")
	case errors.Is(err, authz.ErrNotAuthorized):
		httpx.WriteError(w, http.StatusForbidden, "NOT_AUTHORIZED", "access to this resource is denied")
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		httpx.WriteError(w, http.StatusConflict, "CONCURRENCY_CONFLICT", "order was modified concurrently, re-read and retry")
	case errors.Is(err, domain.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("request failed with internal fault")
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
