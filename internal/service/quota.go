package service

import (
	"fmt"

	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/domain"
)

// 配额资源名，用于指标标签
const (
	resourceActiveAliases = "active_aliases"
	resourceDomains       = "custom_domains"
	resourceUsernames     = "custom_usernames"
)

// Limits 每个用户的资源上限
type Limits struct {
	ActiveAliases int
	Domains       int
	Usernames     int
}

// DefaultLimits 默认上限 30 / 10 / 2
func DefaultLimits() Limits {
	return Limits{ActiveAliases: 30, Domains: 10, Usernames: 2}
}

// LimitsFromConfig 从配置读取上限，非正数使用默认值
func LimitsFromConfig(cfg config.QuotaConfig) Limits {
	limits := DefaultLimits()
	if cfg.ActiveAliases > 0 {
		limits.ActiveAliases = cfg.ActiveAliases
	}
	if cfg.Domains > 0 {
		limits.Domains = cfg.Domains
	}
	if cfg.Usernames > 0 {
		limits.Usernames = cfg.Usernames
	}
	return limits
}

// availableSlots 剩余可用名额，不会小于 0
func availableSlots(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// activeAliasLimitError 创建或启用别名时超出上限
func (l Limits) activeAliasLimitError(creating bool) error {
	if creating {
		return domain.QuotaExceeded(fmt.Sprintf(
			"You have reached the limit of %d active aliases. Please deactivate or delete an alias to add a new one.",
			l.ActiveAliases))
	}
	return domain.QuotaExceeded(fmt.Sprintf("You have reached the limit of %d active aliases.", l.ActiveAliases))
}

func (l Limits) domainLimitError() error {
	return domain.QuotaExceeded(fmt.Sprintf("You have reached the maximum limit of %d custom domains.", l.Domains))
}

func (l Limits) usernameLimitError() error {
	return domain.QuotaExceeded(fmt.Sprintf("You have reached the maximum limit of %d custom usernames.", l.Usernames))
}
