package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"k9aliases/backend/internal/domain"
)

// 通用错误消息
const (
	MsgInvalidRequest = "Invalid request."
	MsgInternalError  = "An unexpected error occurred."
)

// kindStatus 错误类别到 HTTP 状态码的映射
var kindStatus = map[error]int{
	domain.ErrNotAuthenticated: http.StatusUnauthorized,
	domain.ErrValidation:       http.StatusBadRequest,
	domain.ErrQuotaExceeded:    http.StatusUnprocessableEntity,
	domain.ErrNotFound:         http.StatusNotFound,
	domain.ErrConflict:         http.StatusConflict,
	domain.ErrStorage:          http.StatusInternalServerError,
}

// StatusOf 返回业务错误对应的 HTTP 状态码
func StatusOf(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError 按错误类别输出统一的错误响应
func RespondError(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := domain.MessageOf(err)

	// 非业务错误不向客户端暴露内部细节
	var de *domain.Error
	if !errors.As(err, &de) {
		msg = MsgInternalError
	}
	_ = c.Error(err)
	Error(c, status, msg)
}
