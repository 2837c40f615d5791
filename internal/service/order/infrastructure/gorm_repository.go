// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"pedidos/internal/pkg/uow"
	"pedidos/internal/service/order/domain"
)

const mysqlDuplicateEntry = 1062

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
// 它从请求上下文解析当前工作单元的事务句柄，没有句柄时
// 回退到基础连接（只读路径）。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) conn(ctx context.Context) *gorm.DB {
	return uow.DBFrom(ctx, r.db)
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)
	if err := r.conn(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateIdempotencyKey
		}
		return errors.Wrap(err, "failed to insert order")
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.conn(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load order")
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var model OrderModel
	err := r.conn(ctx).Preload("Items").Where("idempotency_key = ?", key).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load order by idempotency key")
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.conn(ctx).Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders by customer")
	}
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toDomainOrder(&models[i]))
	}
	return out, nil
}

// Update 按乐观并发写回订单。
// WHERE 条件匹配的是变更前的版本号（领域层已经把 Version 加一），
// 没有命中任何行说明有并发写入抢先提交，返回冲突让调用方重读重试。
func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	res := r.conn(ctx).Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]interface{}{
			"status":      string(order.Status),
			"version":     order.Version,
			"updated_at":  order.UpdatedAt,
			"paid_at":     order.PaidAt,
			"canceled_at": order.CanceledAt,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// Delete 显式枚举删除整个聚合：行项目、支付、通知，最后是订单行。
// 删除顺序由这里明确持有，而不是依赖隐式的级联。
func (r *GormOrderRepository) Delete(ctx context.Context, order *domain.Order) error {
	conn := r.conn(ctx)
	if err := conn.Where("order_id = ?", order.ID).Delete(&OrderItemModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete order items")
	}
	if err := conn.Where("order_id = ?", order.ID).Delete(&PaymentModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete payment")
	}
	if err := conn.Where("order_id = ?", order.ID).Delete(&NotificationModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete notifications")
	}
	if err := conn.Delete(&OrderModel{}, "id = ?", order.ID).Error; err != nil {
		return errors.Wrap(err, "failed to delete order")
	}
	return nil
}

func (r *GormOrderRepository) OwnerOf(ctx context.Context, orderID string) (string, error) {
	var customerID string
	err := r.conn(ctx).Model(&OrderModel{}).
		Where("id = ?", orderID).
		Pluck("customer_id", &customerID).Error
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve order owner")
	}
	if customerID == "" {
		return "", domain.ErrNotFound
	}
	return customerID, nil
}

func isDuplicateKey(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return stderrors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GormPaymentRepository 是 domain.PaymentRepository 的 GORM 实现。
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return uow.DBFrom(ctx, r.db)
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if err := r.conn(ctx).Create(toPaymentModel(payment)).Error; err != nil {
		return errors.Wrap(err, "failed to insert payment")
	}
	return nil
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var model PaymentModel
	err := r.conn(ctx).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load payment")
	}
	return toDomainPayment(&model), nil
}

func (r *GormPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	res := r.conn(ctx).Model(&PaymentModel{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"status":       string(payment.Status),
			"external_ref": payment.ExternalRef,
			"message":      payment.Message,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update payment")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GormNotificationRepository 是 domain.NotificationRepository 的 GORM 实现。
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) conn(ctx context.Context) *gorm.DB {
	return uow.DBFrom(ctx, r.db)
}

func (r *GormNotificationRepository) Append(ctx context.Context, n *domain.Notification) error {
	model := toNotificationModel(n)
	if err := r.conn(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "failed to append notification")
	}
	n.ID = model.ID
	return nil
}

func (r *GormNotificationRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.Notification, error) {
	var models []NotificationModel
	err := r.conn(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	out := make([]*domain.Notification, 0, len(models))
	for i := range models {
		out = append(out, toDomainNotification(&models[i]))
	}
	return out, nil
}
