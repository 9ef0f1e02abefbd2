package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
	"k9aliases/backend/internal/storage/redis"
)

// Store 混合存储实现：持久化存储 + Redis 会话读缓存。
// 除会话相关方法外全部委托给底层存储。
type Store struct {
	storage.Store

	cache   *redis.Cache
	ttl     time.Duration
	log     *zap.Logger
	metrics *monitoring.Metrics
}

var (
	_ storage.Store               = (*Store)(nil)
	_ storage.RateLimitRepository = (*Store)(nil)
)

// NewStore 创建混合存储实例
func NewStore(db storage.Store, cache *redis.Cache, ttl time.Duration, log *zap.Logger, metrics *monitoring.Metrics) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		Store:   db,
		cache:   cache,
		ttl:     ttl,
		log:     log,
		metrics: metrics,
	}
}

// ========== Session Repository ==========

// GetSession 先读 Redis，未命中再读数据库并回填缓存
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.cache.GetCachedSession(ctx, id)
	if err == nil {
		s.metrics.RecordSessionCache("hit")
		return session, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		// 缓存故障不影响主流程
		s.log.Warn("session cache read failed", zap.String("session_id", id), zap.Error(err))
	}
	s.metrics.RecordSessionCache("miss")

	session, err = s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheSession(ctx, session, s.ttl); err != nil {
		s.log.Warn("session cache write failed", zap.String("session_id", id), zap.Error(err))
	}
	return session, nil
}

// DeleteSession 删除会话并清除缓存
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.Store.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// DeleteSessionsExcept 删除会话并清除对应缓存
func (s *Store) DeleteSessionsExcept(ctx context.Context, userID, keepID string) (int64, error) {
	ids, err := s.sessionIDs(ctx, userID)
	if err != nil {
		return 0, err
	}

	removed, err := s.Store.DeleteSessionsExcept(ctx, userID, keepID)
	if err != nil {
		return 0, err
	}

	evict := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != keepID {
			evict = append(evict, id)
		}
	}
	s.evict(ctx, evict...)
	return removed, nil
}

// DeleteUser 删除用户并清除其全部会话缓存
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	ids, err := s.sessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.evict(ctx, ids...)
	return nil
}

// ========== Rate Limit Repository ==========

// IncrementRateLimit 使用 Redis 计数，多实例共享
func (s *Store) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.cache.IncrementRateLimit(ctx, key, window)
}

// ResetRateLimit 清除计数
func (s *Store) ResetRateLimit(ctx context.Context, key string) error {
	return s.cache.ResetRateLimit(ctx, key)
}

// Health 同时检查数据库与 Redis
func (s *Store) Health() error {
	if err := s.Store.Health(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.cache.Health(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (s *Store) sessionIDs(ctx context.Context, userID string) ([]string, error) {
	sessions, err := s.Store.ListSessions(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	return ids, nil
}

func (s *Store) evict(ctx context.Context, ids ...string) {
	if err := s.cache.DeleteCachedSessions(ctx, ids...); err != nil {
		s.log.Warn("session cache eviction failed", zap.Strings("session_ids", ids), zap.Error(err))
	}
}
