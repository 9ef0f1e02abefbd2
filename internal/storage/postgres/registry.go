package postgres

import (
	"context"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// ========== Custom Domain Repository ==========

// CreateCustomDomain 保存自定义域名
func (s *Store) CreateCustomDomain(ctx context.Context, d *domain.CustomDomain) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

// GetCustomDomain 获取属于该用户的域名
func (s *Store) GetCustomDomain(ctx context.Context, userID, id string) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindCustomDomainByName 按名称查找（不区分大小写）
func (s *Store) FindCustomDomainByName(ctx context.Context, userID, name string) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(domain_name) = LOWER(?)", userID, name).
		Take(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// ListCustomDomains 列出用户域名
func (s *Store) ListCustomDomains(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomDomain, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var domains []*domain.CustomDomain
	if err := query.Order("created_at DESC").Find(&domains).Error; err != nil {
		return nil, translate(err)
	}
	return domains, nil
}

// CountCustomDomains 统计用户域名
func (s *Store) CountCustomDomains(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.CustomDomain{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), translate(err)
}

// UpdateCustomDomain 更新名称、描述与启用状态
func (s *Store) UpdateCustomDomain(ctx context.Context, d *domain.CustomDomain) error {
	result := s.db.WithContext(ctx).Model(&domain.CustomDomain{}).
		Where("id = ? AND user_id = ?", d.ID, d.UserID).
		Updates(map[string]interface{}{
			"domain_name": d.DomainName,
			"description": d.Description,
			"is_active":   d.IsActive,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCustomDomain 删除域名
func (s *Store) DeleteCustomDomain(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.CustomDomain{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== Custom Username Repository ==========

// CreateCustomUsername 保存自定义用户名
func (s *Store) CreateCustomUsername(ctx context.Context, u *domain.CustomUsername) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

// GetCustomUsername 获取属于该用户的用户名
func (s *Store) GetCustomUsername(ctx context.Context, userID, id string) (*domain.CustomUsername, error) {
	var u domain.CustomUsername
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// CustomUsernameTaken 检查用户名是否已被任意用户登记
func (s *Store) CustomUsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.CustomUsername{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error
	return count > 0, translate(err)
}

// ListCustomUsernames 列出用户名
func (s *Store) ListCustomUsernames(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomUsername, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var usernames []*domain.CustomUsername
	if err := query.Order("created_at DESC").Find(&usernames).Error; err != nil {
		return nil, translate(err)
	}
	return usernames, nil
}

// CountCustomUsernames 统计用户名
func (s *Store) CountCustomUsernames(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.CustomUsername{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), translate(err)
}

// UpdateCustomUsername 更新描述与启用状态
func (s *Store) UpdateCustomUsername(ctx context.Context, u *domain.CustomUsername) error {
	result := s.db.WithContext(ctx).Model(&domain.CustomUsername{}).
		Where("id = ? AND user_id = ?", u.ID, u.UserID).
		Updates(map[string]interface{}{
			"description": u.Description,
			"is_active":   u.IsActive,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCustomUsername 删除用户名
func (s *Store) DeleteCustomUsername(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.CustomUsername{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
