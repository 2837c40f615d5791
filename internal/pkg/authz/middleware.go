// internal/pkg/authz/middleware.go
package authz

import (
	"context"
	"errors"
	"net/http"

	"pedidos/internal/pkg/httpx"
	"pedidos/internal/pkg/identity"
	"pedidos/internal/pkg/logger"
)

// ErrBadResourceID 由 OwnerResolver 返回，表示路径中的资源标识格式非法。
var ErrBadResourceID = errors.New("malformed resource identifier")

// OwnerResolver 根据请求定位目标资源的所有者。
// found 为 false 表示资源不存在；守卫会把它与"资源不属于请求方"
// 同等对待，不向标准角色暴露差别。
type OwnerResolver func(ctx context.Context, r *http.Request) (ownerID string, found bool, err error)

// Require 返回一个前置守卫中间件：认证 → 所有权判定 → 放行。
// resolve 为 nil 时只要求请求已认证，不做所有权判定。
func (g *Guard) Require(resolve OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "missing or invalid identity")
				return
			}

			if resolve != nil {
				ownerID, found, err := resolve(r.Context(), r)
				if err != nil {
					if errors.Is(err, ErrBadResourceID) {
						httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
						return
					}
					logger.Ctx(r.Context()).Error().Err(err).Msg("owner resolution failed")
					httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
					return
				}
				if err := g.Authorize(id, ownerID, found); err != nil {
					httpx.WriteError(w, http.StatusForbidden, "NOT_AUTHORIZED", "access to this resource is denied")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
