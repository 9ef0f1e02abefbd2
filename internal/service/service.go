package service

import (
	"errors"

	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

// Notifier 向用户的已连接客户端推送变更事件
type Notifier interface {
	Publish(userID string, event domain.Event)
}

// Result 批量或可部分成功操作的结果
type Result struct {
	Message  string `json:"message"`
	Affected int    `json:"affected"`
	Partial  bool   `json:"partial"`
}

// base 各业务服务共用的依赖
type base struct {
	store    storage.Store
	notifier Notifier
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

func newBase(store storage.Store, log *zap.Logger, metrics *monitoring.Metrics) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{store: store, metrics: metrics, log: log}
}

// SetNotifier 设置事件推送器
func (b *base) SetNotifier(n Notifier) {
	b.notifier = n
}

func (b *base) publish(userID, eventType string) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(userID, domain.Event{Type: eventType})
}

// fail 记录存储错误并转换为通用失败消息。业务错误原样返回。
func (b *base) fail(component, message string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	b.log.Error(message, zap.String("component", component), zap.Error(err))
	b.metrics.RecordError("storage", component)
	return domain.StorageFailure(message, err)
}

// notFound 将存储层的 ErrNotFound 转换为统一的不存在/无权限错误
func notFound(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NotFound(message)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
