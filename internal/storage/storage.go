package storage

import (
	"context"
	"errors"
	"time"

	"k9aliases/backend/internal/domain"
)

var (
	// ErrNotFound 记录不存在（或不属于该用户）
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束
	ErrDuplicate = errors.New("duplicate record")
)

// AliasFilter 在用别名查询条件
type AliasFilter struct {
	Active *bool    // nil 表示不过滤状态
	IDs    []string // 为空表示不过滤 ID
	Limit  int      // <=0 表示不限制
}

// 批量写操作（SetAliasesActive、DeleteAliases、PurgeDeletedAliases）
// 只作用于显式给出的 ids，ids 为空时不做任何修改。

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	// CreateUser 在同一事务中写入用户与默认设置
	CreateUser(ctx context.Context, user *domain.User, settings *domain.UserSettings) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	// DeleteUser 级联删除用户拥有的全部数据
	DeleteUser(ctx context.Context, userID string) error
}

// SettingsRepository 定义用户设置存取操作。
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error)
	SaveSettings(ctx context.Context, settings *domain.UserSettings) error
}

// SessionRepository 定义会话存取操作。
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	// ListSessions 返回用户在 now 时刻仍有效的会话，按创建时间倒序
	ListSessions(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteSessionsExcept 删除用户除 keepID 之外的全部会话，keepID 为空时全部删除
	DeleteSessionsExcept(ctx context.Context, userID, keepID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// AliasRepository 定义在用别名数据存取操作。
type AliasRepository interface {
	CreateAlias(ctx context.Context, alias *domain.Alias) error
	GetAlias(ctx context.Context, userID, id string) (*domain.Alias, error)
	FindAliasByAddress(ctx context.Context, userID, address string) (*domain.Alias, error)
	// ListAliases 按创建时间倒序返回
	ListAliases(ctx context.Context, userID string, filter AliasFilter) ([]*domain.Alias, error)
	// SearchAliases 对地址与描述做不区分大小写的子串匹配
	SearchAliases(ctx context.Context, userID, query string, limit int) ([]*domain.Alias, error)
	CountActiveAliases(ctx context.Context, userID string) (int, error)
	CountAliases(ctx context.Context, userID string) (active, inactive int, err error)
	// SetAliasesActive 只更新 ids 中状态确实发生变化的行，返回受影响行数
	SetAliasesActive(ctx context.Context, userID string, ids []string, active bool) (int64, error)
	DeleteAliases(ctx context.Context, userID string, ids []string) (int64, error)
}

// DeletedAliasRepository 定义已删除别名数据存取操作。
type DeletedAliasRepository interface {
	CreateDeletedAliases(ctx context.Context, aliases []*domain.DeletedAlias) error
	GetDeletedAlias(ctx context.Context, userID, id string) (*domain.DeletedAlias, error)
	// ListDeletedAliases 按删除时间倒序返回，ids 为空表示全部
	ListDeletedAliases(ctx context.Context, userID string, ids []string) ([]*domain.DeletedAlias, error)
	// PurgeDeletedAliases 永久删除 ids 指定的记录
	PurgeDeletedAliases(ctx context.Context, userID string, ids []string) (int64, error)
	CountDeletedAliases(ctx context.Context, userID string) (int, error)
}

// CustomDomainRepository 定义自定义域名存取操作。
type CustomDomainRepository interface {
	CreateCustomDomain(ctx context.Context, d *domain.CustomDomain) error
	GetCustomDomain(ctx context.Context, userID, id string) (*domain.CustomDomain, error)
	FindCustomDomainByName(ctx context.Context, userID, name string) (*domain.CustomDomain, error)
	ListCustomDomains(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomDomain, error)
	CountCustomDomains(ctx context.Context, userID string) (int, error)
	UpdateCustomDomain(ctx context.Context, d *domain.CustomDomain) error
	DeleteCustomDomain(ctx context.Context, userID, id string) error
}

// CustomUsernameRepository 定义自定义用户名存取操作。
type CustomUsernameRepository interface {
	CreateCustomUsername(ctx context.Context, u *domain.CustomUsername) error
	GetCustomUsername(ctx context.Context, userID, id string) (*domain.CustomUsername, error)
	// CustomUsernameTaken 检查任意用户是否已登记该用户名（不区分大小写）
	CustomUsernameTaken(ctx context.Context, username string) (bool, error)
	ListCustomUsernames(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomUsername, error)
	CountCustomUsernames(ctx context.Context, userID string) (int, error)
	UpdateCustomUsername(ctx context.Context, u *domain.CustomUsername) error
	DeleteCustomUsername(ctx context.Context, userID, id string) error
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	ResetRateLimit(ctx context.Context, key string) error
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	SettingsRepository
	SessionRepository
	AliasRepository
	DeletedAliasRepository
	CustomDomainRepository
	CustomUsernameRepository

	// WithinUserTx 在单个事务中执行 fn，并在事务开始时锁定该用户，
	// 使同一用户的配额检查与写入串行化。fn 返回错误时整体回滚。
	WithinUserTx(ctx context.Context, userID string, fn func(tx Store) error) error

	// 工具方法
	Close() error
	Health() error
}
