package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// Store PostgreSQL 存储实现
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建 PostgreSQL 存储实例
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	store, err := NewStoreWithDialector(postgres.Open(cfg.DSN))
	if err != nil {
		return nil, err
	}

	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return store, nil
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// 连接数据库
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.UserSettings{},
		&domain.Session{},
		&domain.Alias{},
		&domain.DeletedAlias{},
		&domain.CustomDomain{},
		&domain.CustomUsername{},
	)
}

// WithinUserTx 在事务中执行 fn，事务开始时以 FOR UPDATE 锁定用户行，
// 同一用户的配额检查与写入因此串行执行。
func (s *Store) WithinUserTx(ctx context.Context, userID string, fn func(tx storage.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", userID).
			Take(&user).Error
		if err != nil {
			return translate(err)
		}
		return fn(&Store{db: tx})
	})
}

// ========== User Repository ==========

// CreateUser 在事务中写入用户与默认设置
func (s *Store) CreateUser(ctx context.Context, user *domain.User, settings *domain.UserSettings) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translate(err)
		}
		if settings == nil {
			return nil
		}
		return translate(tx.Create(settings).Error)
	})
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateUserPassword 更新密码哈希
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser 在事务中删除用户及其全部数据
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&domain.Session{},
			&domain.Alias{},
			&domain.DeletedAlias{},
			&domain.CustomDomain{},
			&domain.CustomUsername{},
			&domain.UserSettings{},
		}
		for _, model := range owned {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return translate(err)
			}
		}

		result := tx.Where("id = ?", userID).Delete(&domain.User{})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// ========== Settings Repository ==========

// GetSettings 获取用户设置
func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	var settings domain.UserSettings
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&settings).Error; err != nil {
		return nil, translate(err)
	}
	return &settings, nil
}

// SaveSettings 保存用户设置（按主键 upsert）
func (s *Store) SaveSettings(ctx context.Context, settings *domain.UserSettings) error {
	return translate(s.db.WithContext(ctx).Save(settings).Error)
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 健康检查
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
