// internal/pkg/httpx/respond.go
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody 是所有错误响应的统一结构化载体。
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON 以给定状态码输出 JSON 响应体。
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError 输出结构化错误响应。
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Code: code, Message: message})
}
