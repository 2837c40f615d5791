// internal/pkg/httpx/recoverer.go
package httpx

import (
	"net/http"
	"runtime/debug"

	"pedidos/internal/pkg/logger"
)

// Recoverer 捕获处理器抛出的未处理故障，返回不含内部细节的 500。
// 它必须位于事务中间件的外层：事务中间件回滚后重新抛出，
// 由这里统一转换为响应。
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("unhandled fault in request handler")
				WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
