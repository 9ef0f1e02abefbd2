package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// Alert 告警
type Alert struct {
	ID         string     `json:"id"`
	Rule       string     `json:"rule"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Level      AlertLevel `json:"level"`
	Component  string     `json:"component"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// AlertRule 告警规则。Condition 返回 true 表示触发。
type AlertRule struct {
	ID        string
	Name      string
	Condition func() bool
	Level     AlertLevel
	Component string
	Message   string
	Cooldown  time.Duration
}

// AlertReceiver 告警接收器接口
type AlertReceiver interface {
	SendAlert(alert *Alert) error
}

// AlertManager 周期评估规则；同一规则在未恢复前只告警一次，
// 条件消失后自动恢复。冷却期从最近一次触发或恢复算起。
type AlertManager struct {
	mu         sync.RWMutex
	active     map[string]*Alert // rule id -> 未恢复告警
	history    []Alert
	rules      []AlertRule
	lastChange map[string]time.Time // 最近一次触发或恢复
	receivers  []AlertReceiver
	logger     *zap.Logger
	now        func() time.Time
}

// maxAlertHistory 保留的已恢复告警条数
const maxAlertHistory = 100

// NewAlertManager 创建告警管理器
func NewAlertManager(logger *zap.Logger) *AlertManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertManager{
		active:     make(map[string]*Alert),
		lastChange: make(map[string]time.Time),
		logger:     logger,
		now:        time.Now,
	}
}

// AddReceiver 添加告警接收器
func (am *AlertManager) AddReceiver(receiver AlertReceiver) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.receivers = append(am.receivers, receiver)
}

// AddRule 添加告警规则
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// CheckRules 评估所有规则
func (am *AlertManager) CheckRules() {
	am.mu.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mu.RUnlock()

	for _, rule := range rules {
		if rule.Condition() {
			am.trigger(rule)
		} else {
			am.resolve(rule.ID)
		}
	}
}

func (am *AlertManager) trigger(rule AlertRule) {
	am.mu.Lock()
	now := am.now()
	if _, firing := am.active[rule.ID]; firing {
		am.mu.Unlock()
		return
	}
	if last, ok := am.lastChange[rule.ID]; ok && now.Sub(last) < rule.Cooldown {
		am.mu.Unlock()
		return
	}

	alert := &Alert{
		ID:        fmt.Sprintf("%s_%d", rule.ID, now.Unix()),
		Rule:      rule.ID,
		Title:     rule.Name,
		Message:   rule.Message,
		Level:     rule.Level,
		Component: rule.Component,
		Timestamp: now,
	}
	am.active[rule.ID] = alert
	am.lastChange[rule.ID] = now
	receivers := append([]AlertReceiver(nil), am.receivers...)
	am.mu.Unlock()

	for _, receiver := range receivers {
		if err := receiver.SendAlert(alert); err != nil {
			am.logger.Error("failed to send alert",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		}
	}
}

func (am *AlertManager) resolve(ruleID string) {
	am.mu.Lock()
	defer am.mu.Unlock()

	alert, firing := am.active[ruleID]
	if !firing {
		return
	}
	now := am.now()
	alert.Resolved = true
	alert.ResolvedAt = &now
	delete(am.active, ruleID)
	am.lastChange[ruleID] = now

	am.history = append(am.history, *alert)
	if len(am.history) > maxAlertHistory {
		am.history = am.history[len(am.history)-maxAlertHistory:]
	}

	am.logger.Info("alert resolved",
		zap.String("alert_id", alert.ID),
		zap.String("component", alert.Component),
	)
}

// ActiveAlerts 返回未恢复的告警
func (am *AlertManager) ActiveAlerts() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	alerts := make([]Alert, 0, len(am.active))
	for _, alert := range am.active {
		alerts = append(alerts, *alert)
	}
	return alerts
}

// History 返回最近恢复的告警
func (am *AlertManager) History() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return append([]Alert(nil), am.history...)
}

// Run 按间隔评估规则直到 ctx 结束
func (am *AlertManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.CheckRules()
		}
	}
}

// ========== 内置告警规则 ==========

// StoreUnavailableRule 存储健康检查失败
func StoreUnavailableRule(health func() error) AlertRule {
	return AlertRule{
		ID:   "store_unavailable",
		Name: "Store Unavailable",
		Condition: func() bool {
			return health() != nil
		},
		Level:     AlertLevelCritical,
		Component: "storage",
		Message:   "Alias store health check failed",
		Cooldown:  time.Minute,
	}
}

// HighMemoryUsageRule 堆内存超过阈值
func HighMemoryUsageRule(thresholdMB float64) AlertRule {
	return AlertRule{
		ID:   "high_memory_usage",
		Name: "High Memory Usage",
		Condition: func() bool {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return float64(m.Alloc)/1024/1024 > thresholdMB
		},
		Level:     AlertLevelWarning,
		Component: "memory",
		Message:   fmt.Sprintf("Memory usage exceeds %.0f MB", thresholdMB),
		Cooldown:  5 * time.Minute,
	}
}

// LoginFailureSpikeRule 两次评估之间失败与被锁定的登录数达到阈值。
// 常见于撞库。
func LoginFailureSpikeRule(m *Metrics, threshold float64) AlertRule {
	var (
		mu   sync.Mutex
		last float64
		seen bool
	)
	failures := func() float64 {
		if m == nil {
			return 0
		}
		return counterValue(m.LoginsTotal.WithLabelValues("failure")) +
			counterValue(m.LoginsTotal.WithLabelValues("locked"))
	}

	return AlertRule{
		ID:   "login_failure_spike",
		Name: "Login Failure Spike",
		Condition: func() bool {
			mu.Lock()
			defer mu.Unlock()

			current := failures()
			delta := current - last
			last = current
			if !seen {
				seen = true
				return false
			}
			return delta >= threshold
		},
		Level:     AlertLevelWarning,
		Component: "auth",
		Message:   fmt.Sprintf("At least %.0f failed logins since the last check", threshold),
		Cooldown:  5 * time.Minute,
	}
}

// counterValue 读取计数器当前值
func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}

// ========== 告警接收器实现 ==========

// LogAlertReceiver 日志告警接收器
type LogAlertReceiver struct {
	logger *zap.Logger
}

// NewLogAlertReceiver 创建日志告警接收器
func NewLogAlertReceiver(logger *zap.Logger) *LogAlertReceiver {
	return &LogAlertReceiver{logger: logger}
}

// SendAlert 按级别写入日志
func (lar *LogAlertReceiver) SendAlert(alert *Alert) error {
	fields := []zap.Field{
		zap.String("alert_id", alert.ID),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
		zap.String("component", alert.Component),
		zap.Time("timestamp", alert.Timestamp),
	}

	switch alert.Level {
	case AlertLevelCritical:
		lar.logger.Error("CRITICAL ALERT", fields...)
	case AlertLevelWarning:
		lar.logger.Warn("WARNING ALERT", fields...)
	default:
		lar.logger.Info("INFO ALERT", fields...)
	}
	return nil
}
