package domain

import "errors"

// 错误类别。业务错误通过 errors.Is 匹配类别。
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation failed")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrNotFound         = errors.New("not found or forbidden")
	ErrConflict         = errors.New("conflict")
	ErrStorage          = errors.New("storage failure")
)

// Error 携带用户可读消息的业务错误
type Error struct {
	Kind    error  // 错误类别，取值为上面的哨兵错误之一
	Message string // 展示给用户的消息
	Err     error  // 底层原因，可为空
}

// Error 返回用户可读消息
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 同时暴露类别与底层原因
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewError 创建业务错误
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError 创建带底层原因的业务错误
func WrapError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation 校验失败
func Validation(message string) *Error {
	return NewError(ErrValidation, message)
}

// NotFound 资源不存在或不属于当前用户
func NotFound(message string) *Error {
	return NewError(ErrNotFound, message)
}

// Conflict 唯一性冲突
func Conflict(message string) *Error {
	return NewError(ErrConflict, message)
}

// QuotaExceeded 超出配额
func QuotaExceeded(message string) *Error {
	return NewError(ErrQuotaExceeded, message)
}

// StorageFailure 存储层错误
func StorageFailure(message string, err error) *Error {
	return WrapError(ErrStorage, message, err)
}

// KindOf 返回错误所属类别，无法识别时归为存储错误
func KindOf(err error) error {
	for _, kind := range []error{ErrNotAuthenticated, ErrValidation, ErrQuotaExceeded, ErrNotFound, ErrConflict, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrStorage
}

// MessageOf 返回用户可读消息
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
