// internal/pkg/authz/guard.go
package authz

import (
	"errors"

	"pedidos/internal/pkg/identity"
	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/metrics"
)

var (
	// ErrNotAuthenticated 表示请求缺少可信身份。
	ErrNotAuthenticated = errors.New("request is not authenticated")
	// ErrNotAuthorized 表示身份有效但无权访问目标资源。
	ErrNotAuthorized = errors.New("requester is not authorized to access this resource")
)

// Facts 是一次授权判定的全部输入。
// HasOwner 为 false 同时覆盖"资源不存在"与"资源无所有者"两种情况：
// 守卫刻意不区分二者，避免通过授权通道泄露资源是否存在。
type Facts struct {
	RequesterID string
	Role        identity.Role
	OwnerID     string
	HasOwner    bool
}

// PolicyEngine 对一组事实做出允许/拒绝的判定。
type PolicyEngine interface {
	Allow(facts Facts) (bool, error)
}

// Guard 是所有权守卫：决定 (请求方身份, 角色, 目标资源) 三元组的访问权。
type Guard struct {
	engine PolicyEngine
}

// NewGuard 创建守卫。engine 传 nil 时使用内置判定逻辑。
func NewGuard(engine PolicyEngine) *Guard {
	return &Guard{engine: engine}
}

// Authorize 判定给定身份能否访问属于 ownerID 的资源。
// 策略引擎评估失败时拒绝访问（fail closed），绝不放行。
func (g *Guard) Authorize(id identity.Identity, ownerID string, hasOwner bool) error {
	facts := Facts{
		RequesterID: id.UserID,
		Role:        id.Role,
		OwnerID:     ownerID,
		HasOwner:    hasOwner,
	}

	allowed, err := g.evaluate(facts)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("policy evaluation failed, denying access")
		metrics.AuthzDenied.Inc()
		return ErrNotAuthorized
	}
	if !allowed {
		metrics.AuthzDenied.Inc()
		return ErrNotAuthorized
	}
	return nil
}

func (g *Guard) evaluate(facts Facts) (bool, error) {
	if g.engine != nil {
		return g.engine.Allow(facts)
	}
	// 内置判定：特权角色不受限制，标准角色仅能访问自己的资源。
	if facts.Role == identity.RolePrivileged {
		return true, nil
	}
	return facts.HasOwner && facts.OwnerID == facts.RequesterID, nil
}
