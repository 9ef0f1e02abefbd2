package memory

import (
	"context"
	"sync"
	"time"
)

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// rateLimits 独立于事务快照的限流计数
type rateLimits struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	cleanup time.Time // 下次清理过期条目的时间
}

func newRateLimits() *rateLimits {
	return &rateLimits{
		entries: make(map[string]*rateLimitEntry),
		cleanup: time.Now().Add(5 * time.Minute),
	}
}

// IncrementRateLimit 增加限流计数，窗口过期后重新计数
func (s *Store) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	l := s.limits
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	// 每5分钟清理一次过期条目
	if now.After(l.cleanup) {
		for k, v := range l.entries {
			if now.After(v.ExpiresAt) {
				delete(l.entries, k)
			}
		}
		l.cleanup = now.Add(5 * time.Minute)
	}

	entry, exists := l.entries[key]
	if !exists || now.After(entry.ExpiresAt) {
		l.entries[key] = &rateLimitEntry{Count: 1, ExpiresAt: now.Add(window)}
		return 1, nil
	}

	entry.Count++
	return entry.Count, nil
}

// ResetRateLimit 清除限流计数
func (s *Store) ResetRateLimit(ctx context.Context, key string) error {
	l := s.limits
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)
	return nil
}
