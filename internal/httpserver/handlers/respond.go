package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/logger"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// statusOf 错误码到 HTTP 状态码
func statusOf(code string) int {
	switch code {
	case common.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case common.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case common.ErrCodeNotFound:
		return http.StatusNotFound
	case common.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 4xx 返回错误信息, 5xx 只返回通用信息并记日志
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	code := common.CodeOf(err)
	status := statusOf(code)

	msg := http.StatusText(status)
	var appErr *common.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error("请求处理失败", logger.String("code", code), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: common.ErrCodeInvalidInput, Error: msg})
}

// decodeJSON 请求体最大 1MB, 不允许未知字段
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.WrapError(common.ErrCodeInvalidInput, "请求体不是合法的 JSON", err)
	}
	return nil
}
