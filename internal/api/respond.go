package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"spot-api/internal/kv"
	"spot-api/internal/logger"
)

// maxBody：请求体上限
const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: what + " not found"})
}

// 文档注释：存储错误到 HTTP 状态的映射
// 约束：kv.ErrNotFound→404，kv.ErrConflict→409，其余→500；500 不回显内部错误。
func writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, kv.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, kv.ErrConflict):
		logger.L().Warn("api_conflict", "op", op, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusConflict, errorBody{Error: "concurrent update, try again"})
	default:
		logger.L().Error("api_store_error", "op", op, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "storage unavailable"})
	}
}

// decodeBody：按 JSON 解码请求体，失败时已写出 400
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid json body")
		return false
	}
	return true
}
