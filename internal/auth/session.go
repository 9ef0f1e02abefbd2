package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// 令牌格式: <sessionID>.<hex 密钥>
const (
	secretBytes    = 32
	tokenSeparator = "."
)

// DefaultSessionTTL 会话默认有效期
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionManager 负责签发、解析与注销会话令牌。
// 存储只保存密钥部分的 HMAC-SHA256，查找按会话 ID 走主键索引。
type SessionManager struct {
	store  storage.SessionRepository
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// SessionList 当前会话与其他设备会话
type SessionList struct {
	Current *domain.Session   `json:"current"`
	Others  []*domain.Session `json:"others"`
}

// NewSessionManager 创建会话管理器
func NewSessionManager(store storage.SessionRepository, secret string, ttl time.Duration, log *zap.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// TTL 返回会话有效期
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue 为用户签发新会话，返回明文令牌
func (m *SessionManager) Issue(ctx context.Context, userID string, meta domain.ClientMeta) (string, *domain.Session, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	now := m.now().UTC()
	session := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: m.hash(secret),
		UserAgent: truncate(meta.UserAgent, 512),
		IPAddress: truncate(meta.IPAddress, 64),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session.ID + tokenSeparator + secret, session, nil
}

// Resolve 解析令牌对应的有效会话。
// 格式错误、过期、哈希不匹配以及存储错误都视为未登录。
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.Session, bool) {
	id, secret, ok := splitToken(token)
	if !ok {
		return nil, false
	}

	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.Error("Failed to load session", zap.String("session_id", id), zap.Error(err))
		}
		return nil, false
	}

	if session.Expired(m.now()) {
		return nil, false
	}
	if !m.matches(session.TokenHash, secret) {
		return nil, false
	}
	return session, true
}

// Invalidate 删除令牌对应的会话。会话不存在也视为成功。
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	id, secret, ok := splitToken(token)
	if !ok {
		return nil
	}

	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !m.matches(session.TokenHash, secret) {
		return nil
	}

	if err := m.store.DeleteSession(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllExcept 删除用户除当前令牌外的全部会话，返回删除数量
func (m *SessionManager) InvalidateAllExcept(ctx context.Context, userID, currentToken string) (int64, error) {
	keepID := ""
	if session, ok := m.Resolve(ctx, currentToken); ok && session.UserID == userID {
		keepID = session.ID
	}

	removed, err := m.store.DeleteSessionsExcept(ctx, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return removed, nil
}

// Sessions 列出用户的有效会话，并区分当前会话
func (m *SessionManager) Sessions(ctx context.Context, userID, currentToken string) (*SessionList, error) {
	sessions, err := m.store.ListSessions(ctx, userID, m.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	currentID, _, _ := splitToken(currentToken)
	list := &SessionList{Others: make([]*domain.Session, 0, len(sessions))}
	for _, s := range sessions {
		if s.ID == currentID && list.Current == nil {
			list.Current = s
			continue
		}
		list.Others = append(list.Others, s)
	}
	return list, nil
}

// PurgeExpired 清理过期会话
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}

func (m *SessionManager) hash(secret string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// matches 常量时间比较存储的哈希
func (m *SessionManager) matches(stored, secret string) bool {
	want, err := hex.DecodeString(stored)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(secret))
	return subtle.ConstantTimeCompare(want, mac.Sum(nil)) == 1
}

// splitToken 拆分令牌，ID 必须是 UUID，密钥必须是 64 位十六进制
func splitToken(token string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(strings.TrimSpace(token), tokenSeparator)
	if !found {
		return "", "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	if len(secret) != secretBytes*2 {
		return "", "", false
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return "", "", false
	}
	return id, secret, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
