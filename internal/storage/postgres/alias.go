package postgres

import (
	"context"

	"gorm.io/gorm"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// ========== Alias Repository ==========

// CreateAlias 保存别名，(user_id, address) 冲突时返回 storage.ErrDuplicate
//
// 在事务内调用时插入包在保存点中，唯一约束冲突只回滚这一行，
// 外层事务仍可继续执行。
func (s *Store) CreateAlias(ctx context.Context, alias *domain.Alias) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(alias).Error
	}))
}

// GetAlias 获取属于该用户的别名
func (s *Store) GetAlias(ctx context.Context, userID, id string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&alias).Error; err != nil {
		return nil, translate(err)
	}
	return &alias, nil
}

// FindAliasByAddress 按地址查找别名
func (s *Store) FindAliasByAddress(ctx context.Context, userID, address string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.WithContext(ctx).Where("user_id = ? AND address = ?", userID, address).Take(&alias).Error; err != nil {
		return nil, translate(err)
	}
	return &alias, nil
}

// ListAliases 按条件列出别名，新建的在前
func (s *Store) ListAliases(ctx context.Context, userID string, filter storage.AliasFilter) ([]*domain.Alias, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var aliases []*domain.Alias
	if err := query.Order("created_at DESC, id DESC").Find(&aliases).Error; err != nil {
		return nil, translate(err)
	}
	return aliases, nil
}

// SearchAliases 在地址与描述中做不区分大小写的子串匹配
func (s *Store) SearchAliases(ctx context.Context, userID, query string, limit int) ([]*domain.Alias, error) {
	pattern := "%" + escapeLike(query) + "%"
	db := s.db.WithContext(ctx).
		Where("user_id = ? AND (address ILIKE ? OR description ILIKE ?)", userID, pattern, pattern).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var aliases []*domain.Alias
	if err := db.Find(&aliases).Error; err != nil {
		return nil, translate(err)
	}
	return aliases, nil
}

// CountActiveAliases 统计启用中的别名
func (s *Store) CountActiveAliases(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Alias{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return int(count), translate(err)
}

// CountAliases 分别统计启用与停用的别名
func (s *Store) CountAliases(ctx context.Context, userID string) (active, inactive int, err error) {
	var rows []struct {
		IsActive bool
		Count    int
	}
	err = s.db.WithContext(ctx).Model(&domain.Alias{}).
		Select("is_active, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("is_active").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, translate(err)
	}
	for _, row := range rows {
		if row.IsActive {
			active = row.Count
		} else {
			inactive = row.Count
		}
	}
	return active, inactive, nil
}

// SetAliasesActive 批量修改启用状态，只更新状态不同的行
func (s *Store) SetAliasesActive(ctx context.Context, userID string, ids []string, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&domain.Alias{}).
		Where("user_id = ? AND id IN ? AND is_active <> ?", userID, ids, active).
		Update("is_active", active)
	return result.RowsAffected, translate(result.Error)
}

// DeleteAliases 批量删除在用别名
func (s *Store) DeleteAliases(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&domain.Alias{})
	return result.RowsAffected, translate(result.Error)
}

// ========== Deleted Alias Repository ==========

// CreateDeletedAliases 批量写入已删除记录
func (s *Store) CreateDeletedAliases(ctx context.Context, aliases []*domain.DeletedAlias) error {
	if len(aliases) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(aliases).Error)
}

// GetDeletedAlias 获取属于该用户的已删除别名
func (s *Store) GetDeletedAlias(ctx context.Context, userID, id string) (*domain.DeletedAlias, error) {
	var alias domain.DeletedAlias
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&alias).Error; err != nil {
		return nil, translate(err)
	}
	return &alias, nil
}

// ListDeletedAliases 列出已删除别名，最近删除的在前
func (s *Store) ListDeletedAliases(ctx context.Context, userID string, ids []string) ([]*domain.DeletedAlias, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var aliases []*domain.DeletedAlias
	if err := query.Order("deleted_at DESC, id DESC").Find(&aliases).Error; err != nil {
		return nil, translate(err)
	}
	return aliases, nil
}

// PurgeDeletedAliases 永久删除
func (s *Store) PurgeDeletedAliases(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&domain.DeletedAlias{})
	return result.RowsAffected, translate(result.Error)
}

// CountDeletedAliases 统计已删除别名
func (s *Store) CountDeletedAliases(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.DeletedAlias{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), translate(err)
}
