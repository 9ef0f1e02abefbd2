package memory

import (
	"context"
	"sort"
	"strings"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// ========== Custom Domain Repository ==========

// CreateCustomDomain 保存自定义域名
func (s *Store) CreateCustomDomain(ctx context.Context, d *domain.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.d.domains {
		if v.ID == d.ID || (v.UserID == d.UserID && v.DomainName == d.DomainName) {
			return storage.ErrDuplicate
		}
	}
	cp := *d
	s.d.domains[cp.ID] = &cp
	return nil
}

// GetCustomDomain 获取属于该用户的域名
func (s *Store) GetCustomDomain(ctx context.Context, userID, id string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.d.domains[id]
	if !ok || v.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// FindCustomDomainByName 按名称查找（不区分大小写）
func (s *Store) FindCustomDomainByName(ctx context.Context, userID, name string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.d.domains {
		if v.UserID == userID && strings.EqualFold(v.DomainName, name) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListCustomDomains 列出用户域名，新建的在前
func (s *Store) ListCustomDomains(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CustomDomain, 0)
	for _, v := range s.d.domains {
		if v.UserID != userID || (activeOnly && !v.IsActive) {
			continue
		}
		cp := *v
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CountCustomDomains 统计用户域名数量
func (s *Store) CountCustomDomains(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.d.domains {
		if v.UserID == userID {
			count++
		}
	}
	return count, nil
}

// UpdateCustomDomain 更新域名，名称与同用户其他记录冲突时返回 ErrDuplicate
func (s *Store) UpdateCustomDomain(ctx context.Context, d *domain.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.domains[d.ID]
	if !ok || existing.UserID != d.UserID {
		return storage.ErrNotFound
	}
	for _, v := range s.d.domains {
		if v.ID != d.ID && v.UserID == d.UserID && v.DomainName == d.DomainName {
			return storage.ErrDuplicate
		}
	}
	existing.DomainName = d.DomainName
	existing.Description = d.Description
	existing.IsActive = d.IsActive
	return nil
}

// DeleteCustomDomain 删除域名
func (s *Store) DeleteCustomDomain(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.d.domains[id]
	if !ok || v.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.d.domains, id)
	return nil
}

// ========== Custom Username Repository ==========

// CreateCustomUsername 保存自定义用户名
func (s *Store) CreateCustomUsername(ctx context.Context, u *domain.CustomUsername) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.d.usernames {
		if v.ID == u.ID || (v.UserID == u.UserID && v.Username == u.Username) {
			return storage.ErrDuplicate
		}
	}
	cp := *u
	s.d.usernames[cp.ID] = &cp
	return nil
}

// GetCustomUsername 获取属于该用户的用户名
func (s *Store) GetCustomUsername(ctx context.Context, userID, id string) (*domain.CustomUsername, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.d.usernames[id]
	if !ok || v.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// CustomUsernameTaken 检查用户名是否已被任意用户登记
func (s *Store) CustomUsernameTaken(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.d.usernames {
		if strings.EqualFold(v.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// ListCustomUsernames 列出用户名，新建的在前
func (s *Store) ListCustomUsernames(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomUsername, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CustomUsername, 0)
	for _, v := range s.d.usernames {
		if v.UserID != userID || (activeOnly && !v.IsActive) {
			continue
		}
		cp := *v
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CountCustomUsernames 统计用户名数量
func (s *Store) CountCustomUsernames(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.d.usernames {
		if v.UserID == userID {
			count++
		}
	}
	return count, nil
}

// UpdateCustomUsername 更新描述与启用状态
func (s *Store) UpdateCustomUsername(ctx context.Context, u *domain.CustomUsername) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.usernames[u.ID]
	if !ok || existing.UserID != u.UserID {
		return storage.ErrNotFound
	}
	existing.Description = u.Description
	existing.IsActive = u.IsActive
	return nil
}

// DeleteCustomUsername 删除用户名
func (s *Store) DeleteCustomUsername(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.d.usernames[id]
	if !ok || v.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.d.usernames, id)
	return nil
}
