package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"k9aliases/backend/internal/storage"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health    healthcheck.Handler
	store     storage.Store
	readiness map[string]healthcheck.Check
	logger    *zap.Logger
}

// NewHealthChecker 创建健康检查器，存储连通性作为存活检查
func NewHealthChecker(store storage.Store, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health:    healthcheck.NewHandler(),
		store:     store,
		readiness: make(map[string]healthcheck.Check),
		logger:    logger,
	}

	hc.health.AddLivenessCheck("store", func() error {
		return hc.store.Health()
	})

	return hc
}

// AddReadinessCheck 注册就绪检查（数据库连接池、Redis 等）
func (hc *HealthChecker) AddReadinessCheck(name string, check healthcheck.Check) {
	hc.readiness[name] = check
	hc.health.AddReadinessCheck(name, healthcheck.Timeout(check, 5*time.Second))
}

// Handler 返回健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// CheckHealth 执行全部检查并返回汇总结果
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string, len(hc.readiness)+2)

	if err := hc.store.Health(); err != nil {
		hc.logger.Warn("store health check failed", zap.Error(err))
		results["store"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["store"] = "OK"
	}

	for name, check := range hc.readiness {
		if err := check(); err != nil {
			hc.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results[name] = "OK"
		}
	}

	results["timestamp"] = time.Now().Format(time.RFC3339)
	return results
}

// Healthy 判断汇总结果是否全部正常
func Healthy(results map[string]string) bool {
	for name, status := range results {
		if name == "timestamp" {
			continue
		}
		if status != "OK" {
			return false
		}
	}
	return true
}
