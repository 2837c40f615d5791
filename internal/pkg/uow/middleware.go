// internal/pkg/uow/middleware.go
package uow

import (
	"bytes"
	"net/http"

	"pedidos/internal/pkg/httpx"
	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/metrics"
)

// Coordinator 把工作单元绑定到单个入站请求的生命周期上，
// 作为管道中处理器前后的一个阶段运行。
type Coordinator struct {
	beginner Beginner
}

func NewCoordinator(beginner Beginner) *Coordinator {
	return &Coordinator{beginner: beginner}
}

// Middleware 包裹处理器：begin → handler → 依据最终结果 commit/rollback。
//   - 变更类方法（POST/PUT/PATCH/DELETE）打开显式事务，其余请求只拿到只读句柄；
//   - 响应状态低于 400 视为成功并提交，否则回滚；
//   - 处理器 panic 时先回滚再继续抛出，由外层 Recoverer 转换为 500；
//   - 句柄的释放是无条件的：任何退出路径都会关闭打开的事务资源。
func (c *Coordinator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unit, err := c.beginner.Begin(r.Context(), isMutating(r.Method))
		if err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("failed to begin unit of work")
			httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
			return
		}

		// 响应先写入缓冲：提交结果必须仍能改变最终响应
		// （提交失败要把已成功的处理结果变成 500）。
		bw := newBufferedWriter()

		completed := false
		defer func() {
			if completed {
				return
			}
			// 未走到正常收尾即离开（panic 或请求被中止）：回滚并释放
			if rbErr := unit.Rollback(); rbErr != nil {
				logger.Ctx(r.Context()).Error().Err(rbErr).Msg("rollback failed on fault path")
			}
			if unit.Transactional() {
				metrics.TxRolledBack.Inc()
			}
		}()

		next.ServeHTTP(bw, r.WithContext(unit.Context(r.Context())))

		if bw.StatusCode() < http.StatusBadRequest {
			if err := unit.Commit(); err != nil {
				// 提交失败把原本成功的结果变为该请求的致命错误
				logger.Ctx(r.Context()).Error().Err(err).Msg("commit failed, degrading response to internal error")
				completed = true
				if unit.Transactional() {
					metrics.TxRolledBack.Inc()
				}
				httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
				return
			}
			if unit.Transactional() {
				metrics.TxCommitted.Inc()
			}
		} else {
			// 回滚失败只记录日志，绝不掩盖处理器给出的原始结果
			if err := unit.Rollback(); err != nil {
				logger.Ctx(r.Context()).Error().Err(err).Msg("rollback failed")
			}
			if unit.Transactional() {
				metrics.TxRolledBack.Inc()
			}
		}

		completed = true
		bw.flushTo(w)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// bufferedWriter 缓存处理器写出的响应，直到事务结果确定后再下发。
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// StatusCode 返回处理器的最终状态；未显式写入时视为 200。
func (b *bufferedWriter) StatusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	for k, vs := range b.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(b.StatusCode())
	_, _ = w.Write(b.body.Bytes())
}
