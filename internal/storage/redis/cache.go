package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"k9aliases/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现：会话读缓存与限流计数
type Cache struct {
	client *redis.Client
}

// NewCache 基于已有连接创建缓存实例
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// cachedSession 会话缓存格式。domain.Session 的 JSON 形式不含哈希，这里需要保留
type cachedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"tokenHash"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// ========== 会话缓存 ==========

// CacheSession 缓存会话，有效期不超过会话本身的剩余时间
func (c *Cache) CacheSession(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachedSession{
		ID:        session.ID,
		UserID:    session.UserID,
		TokenHash: session.TokenHash,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

// GetCachedSession 获取缓存的会话，未命中返回 ErrCacheMiss
func (c *Cache) GetCachedSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var cs cachedSession
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:        cs.ID,
		UserID:    cs.UserID,
		TokenHash: cs.TokenHash,
		UserAgent: cs.UserAgent,
		IPAddress: cs.IPAddress,
		CreatedAt: cs.CreatedAt,
		ExpiresAt: cs.ExpiresAt,
	}, nil
}

// DeleteCachedSessions 删除缓存的会话
func (c *Cache) DeleteCachedSessions(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========== 限流缓存 ==========

// IncrementRateLimit 增加限流计数，窗口从第一次计数开始
func (c *Cache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// ResetRateLimit 清除限流计数
func (c *Cache) ResetRateLimit(ctx context.Context, key string) error {
	return c.client.Del(ctx, fmt.Sprintf("ratelimit:%s", key)).Err()
}

// Health 健康检查
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
