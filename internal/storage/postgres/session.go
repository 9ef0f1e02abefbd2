package postgres

import (
	"context"
	"time"

	"k9aliases/backend/internal/domain"
)

// ========== Session Repository ==========

// CreateSession 保存会话
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return translate(s.db.WithContext(ctx).Create(session).Error)
}

// GetSession 按主键读取会话，不检查过期
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// ListSessions 返回用户未过期的会话，新登录的在前
func (s *Store) ListSessions(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, translate(err)
	}
	return sessions, nil
}

// DeleteSession 删除会话，不存在时不报错
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error)
}

// DeleteSessionsExcept 用一条语句删除用户除 keepID 外的全部会话
func (s *Store) DeleteSessionsExcept(ctx context.Context, userID, keepID string) (int64, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if keepID != "" {
		query = query.Where("id <> ?", keepID)
	}
	result := query.Delete(&domain.Session{})
	return result.RowsAffected, translate(result.Error)
}

// DeleteExpiredSessions 清理已过期的会话
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Session{})
	return result.RowsAffected, translate(result.Error)
}
