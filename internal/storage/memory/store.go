package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
)

// locker 抽象读写锁，事务内部使用空实现
type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type noopLocker struct{}

func (noopLocker) Lock()    {}
func (noopLocker) Unlock()  {}
func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

// data 保存全部表数据
type data struct {
	users     map[string]*domain.User           // userID -> user
	byEmail   map[string]string                 // email -> userID
	settings  map[string]*domain.UserSettings   // userID -> settings
	sessions  map[string]*domain.Session        // sessionID -> session
	aliases   map[string]*domain.Alias          // aliasID -> alias
	deleted   map[string]*domain.DeletedAlias   // aliasID -> deleted alias
	domains   map[string]*domain.CustomDomain   // domainID -> domain
	usernames map[string]*domain.CustomUsername // usernameID -> username
}

func newData() *data {
	return &data{
		users:     make(map[string]*domain.User),
		byEmail:   make(map[string]string),
		settings:  make(map[string]*domain.UserSettings),
		sessions:  make(map[string]*domain.Session),
		aliases:   make(map[string]*domain.Alias),
		deleted:   make(map[string]*domain.DeletedAlias),
		domains:   make(map[string]*domain.CustomDomain),
		usernames: make(map[string]*domain.CustomUsername),
	}
}

func cloneMap[T any](src map[string]*T) map[string]*T {
	dst := make(map[string]*T, len(src))
	for k, v := range src {
		cp := *v
		dst[k] = &cp
	}
	return dst
}

func (d *data) clone() *data {
	byEmail := make(map[string]string, len(d.byEmail))
	for k, v := range d.byEmail {
		byEmail[k] = v
	}
	return &data{
		users:     cloneMap(d.users),
		byEmail:   byEmail,
		settings:  cloneMap(d.settings),
		sessions:  cloneMap(d.sessions),
		aliases:   cloneMap(d.aliases),
		deleted:   cloneMap(d.deleted),
		domains:   cloneMap(d.domains),
		usernames: cloneMap(d.usernames),
	}
}

// Store 使用内存保存全部数据，主要用于开发验证与测试。
type Store struct {
	mu locker
	d  *data

	limits *rateLimits
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mu:     &sync.RWMutex{},
		d:      newData(),
		limits: newRateLimits(),
	}
}

// WithinUserTx 在数据快照上执行 fn，成功后整体替换。
// 执行期间持有写锁，因此所有写操作天然串行。
func (s *Store) WithinUserTx(ctx context.Context, userID string, fn func(tx storage.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.d.users[userID]; !ok {
		return storage.ErrNotFound
	}

	snapshot := s.d.clone()
	tx := &Store{mu: noopLocker{}, d: snapshot, limits: s.limits}
	if err := fn(tx); err != nil {
		return err
	}
	s.d = snapshot
	return nil
}

// ========== 用户 ==========

// CreateUser 写入用户与默认设置。
func (s *Store) CreateUser(ctx context.Context, user *domain.User, settings *domain.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.byEmail[user.Email]; exists {
		return storage.ErrDuplicate
	}
	if _, exists := s.d.users[user.ID]; exists {
		return storage.ErrDuplicate
	}

	u := *user
	s.d.users[u.ID] = &u
	s.d.byEmail[u.Email] = u.ID
	if settings != nil {
		st := *settings
		s.d.settings[u.ID] = &st
	}
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.d.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := *user
	return &u, nil
}

// GetUserByEmail 根据邮箱获取用户。
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.d.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := *s.d.users[id]
	return &u, nil
}

// UpdateUserPassword 更新密码哈希。
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.d.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteUser 删除用户及其全部数据。
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.d.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.d.byEmail, user.Email)
	delete(s.d.users, userID)
	delete(s.d.settings, userID)

	for id, v := range s.d.sessions {
		if v.UserID == userID {
			delete(s.d.sessions, id)
		}
	}
	for id, v := range s.d.aliases {
		if v.UserID == userID {
			delete(s.d.aliases, id)
		}
	}
	for id, v := range s.d.deleted {
		if v.UserID == userID {
			delete(s.d.deleted, id)
		}
	}
	for id, v := range s.d.domains {
		if v.UserID == userID {
			delete(s.d.domains, id)
		}
	}
	for id, v := range s.d.usernames {
		if v.UserID == userID {
			delete(s.d.usernames, id)
		}
	}
	return nil
}

// ========== 设置 ==========

// GetSettings 获取用户设置。
func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.d.settings[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// SaveSettings 保存用户设置（不存在则创建）。
func (s *Store) SaveSettings(ctx context.Context, settings *domain.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.d.users[settings.UserID]; !ok {
		return storage.ErrNotFound
	}
	cp := *settings
	cp.UpdatedAt = time.Now().UTC()
	s.d.settings[cp.UserID] = &cp
	return nil
}

// ========== 会话 ==========

// CreateSession 保存会话。
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.sessions[session.ID]; exists {
		return storage.ErrDuplicate
	}
	cp := *session
	s.d.sessions[cp.ID] = &cp
	return nil
}

// GetSession 根据 ID 获取会话，不检查过期。
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.d.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

// ListSessions 返回用户未过期的会话。
func (s *Store) ListSessions(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Session, 0)
	for _, v := range s.d.sessions {
		if v.UserID == userID && !v.Expired(now) {
			cp := *v
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession 删除会话，不存在时不报错。
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.d.sessions, id)
	return nil
}

// DeleteSessionsExcept 删除用户除 keepID 外的全部会话。
func (s *Store) DeleteSessionsExcept(ctx context.Context, userID, keepID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, v := range s.d.sessions {
		if v.UserID == userID && id != keepID {
			delete(s.d.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// DeleteExpiredSessions 清理已过期的会话。
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, v := range s.d.sessions {
		if v.Expired(now) {
			delete(s.d.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// ========== 在用别名 ==========

// CreateAlias 保存别名，同一用户地址重复时返回 ErrDuplicate。
func (s *Store) CreateAlias(ctx context.Context, alias *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.aliases[alias.ID]; exists {
		return storage.ErrDuplicate
	}
	for _, v := range s.d.aliases {
		if v.UserID == alias.UserID && v.Address == alias.Address {
			return storage.ErrDuplicate
		}
	}
	cp := *alias
	s.d.aliases[cp.ID] = &cp
	return nil
}

// GetAlias 获取属于该用户的别名。
func (s *Store) GetAlias(ctx context.Context, userID, id string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alias, ok := s.d.aliases[id]
	if !ok || alias.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *alias
	return &cp, nil
}

// FindAliasByAddress 按地址查找别名。
func (s *Store) FindAliasByAddress(ctx context.Context, userID, address string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.d.aliases {
		if v.UserID == userID && v.Address == address {
			cp := *v
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListAliases 按条件列出别名，新建的在前。
func (s *Store) ListAliases(ctx context.Context, userID string, filter storage.AliasFilter) ([]*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = toSet(filter.IDs)
	}

	result := make([]*domain.Alias, 0)
	for _, v := range s.d.aliases {
		if v.UserID != userID {
			continue
		}
		if filter.Active != nil && v.IsActive != *filter.Active {
			continue
		}
		if ids != nil {
			if _, ok := ids[v.ID]; !ok {
				continue
			}
		}
		cp := *v
		result = append(result, &cp)
	}
	sortAliases(result)
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// SearchAliases 在地址与描述中搜索。
func (s *Store) SearchAliases(ctx context.Context, userID, query string, limit int) ([]*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	result := make([]*domain.Alias, 0)
	for _, v := range s.d.aliases {
		if v.UserID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(v.Address), q) || strings.Contains(strings.ToLower(v.Description), q) {
			cp := *v
			result = append(result, &cp)
		}
	}
	sortAliases(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountActiveAliases 统计启用中的别名数量。
func (s *Store) CountActiveAliases(ctx context.Context, userID string) (int, error) {
	active, _, err := s.CountAliases(ctx, userID)
	return active, err
}

// CountAliases 分别统计启用与停用的别名数量。
func (s *Store) CountAliases(ctx context.Context, userID string) (active, inactive int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.d.aliases {
		if v.UserID != userID {
			continue
		}
		if v.IsActive {
			active++
		} else {
			inactive++
		}
	}
	return active, inactive, nil
}

// SetAliasesActive 批量修改启用状态。
func (s *Store) SetAliasesActive(ctx context.Context, userID string, ids []string, active bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, id := range dedupe(ids) {
		v, ok := s.d.aliases[id]
		if !ok || v.UserID != userID || v.IsActive == active {
			continue
		}
		v.IsActive = active
		affected++
	}
	return affected, nil
}

// DeleteAliases 批量删除在用别名。
func (s *Store) DeleteAliases(ctx context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, id := range dedupe(ids) {
		v, ok := s.d.aliases[id]
		if !ok || v.UserID != userID {
			continue
		}
		delete(s.d.aliases, id)
		affected++
	}
	return affected, nil
}

// ========== 已删除别名 ==========

// CreateDeletedAliases 批量写入已删除记录。
func (s *Store) CreateDeletedAliases(ctx context.Context, aliases []*domain.DeletedAlias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range aliases {
		if _, exists := s.d.deleted[a.ID]; exists {
			return storage.ErrDuplicate
		}
	}
	for _, a := range aliases {
		cp := *a
		s.d.deleted[cp.ID] = &cp
	}
	return nil
}

// GetDeletedAlias 获取属于该用户的已删除别名。
func (s *Store) GetDeletedAlias(ctx context.Context, userID, id string) (*domain.DeletedAlias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.d.deleted[id]
	if !ok || v.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// ListDeletedAliases 列出已删除别名，最近删除的在前。
func (s *Store) ListDeletedAliases(ctx context.Context, userID string, ids []string) ([]*domain.DeletedAlias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filter map[string]struct{}
	if len(ids) > 0 {
		filter = toSet(ids)
	}

	result := make([]*domain.DeletedAlias, 0)
	for _, v := range s.d.deleted {
		if v.UserID != userID {
			continue
		}
		if filter != nil {
			if _, ok := filter[v.ID]; !ok {
				continue
			}
		}
		cp := *v
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DeletedAt.Equal(result[j].DeletedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].DeletedAt.After(result[j].DeletedAt)
	})
	return result, nil
}

// PurgeDeletedAliases 永久删除。
func (s *Store) PurgeDeletedAliases(ctx context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, id := range dedupe(ids) {
		v, ok := s.d.deleted[id]
		if !ok || v.UserID != userID {
			continue
		}
		delete(s.d.deleted, id)
		affected++
	}
	return affected, nil
}

// CountDeletedAliases 统计已删除别名数量。
func (s *Store) CountDeletedAliases(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.d.deleted {
		if v.UserID == userID {
			count++
		}
	}
	return count, nil
}

// ========== 工具方法 ==========

// Close 关闭存储（内存存储无需关闭）。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查（内存存储始终健康）。
func (s *Store) Health() error {
	return nil
}

func sortAliases(list []*domain.Alias) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
