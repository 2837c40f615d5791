// internal/service/order/domain/status.go
package domain

// Status 是订单生命周期状态。
// 合法流转由 transitions 表单点定义，所有状态变更都经由它判定：
//
//	NEW → PROCESSING → PAID → SHIPPED → DELIVERED
//	NEW | PROCESSING → CANCELED
type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCanceled   Status = "CANCELED"
)

var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusPaid, StatusCanceled},
	StatusProcessing: {StatusPaid, StatusCanceled},
	StatusPaid:       {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCanceled:   {},
}

// CanTransitionTo 判断从当前状态到目标状态是否为合法流转。
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsCancelable 判断订单是否仍可取消。支付完成后不可取消。
func (s Status) IsCancelable() bool {
	return s == StatusNew || s == StatusProcessing
}

// ValidStatus 校验字符串是否为已知的订单状态。
func ValidStatus(s string) bool {
	_, ok := transitions[Status(s)]
	return ok
}
