package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store *Store, id, email string) {
	t.Helper()
	user := &domain.User{ID: id, Email: email, PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(context.Background(), user, domain.DefaultSettings(id, email)))
}

func seedAlias(t *testing.T, store *Store, userID, id, address string, active bool, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.CreateAlias(context.Background(), &domain.Alias{
		ID:          id,
		UserID:      userID,
		Address:     address,
		Description: "Test",
		IsActive:    active,
		CreatedAt:   createdAt,
	}))
}

func TestMemoryStore_UserOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedUser(t, store, "user-1", "user@example.com")

	user, err := store.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	settings, err := store.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user", settings.DisplayName)

	err = store.CreateUser(ctx, &domain.User{ID: "user-2", Email: "user@example.com"}, nil)
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, store.UpdateUserPassword(ctx, "user-1", "new-hash"))
	user, err = store.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", user.PasswordHash)

	// 返回值是副本
	user.Email = "changed@example.com"
	again, _ := store.GetUserByID(ctx, "user-1")
	assert.Equal(t, "user@example.com", again.Email)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_DeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedUser(t, store, "user-1", "a@example.com")
	seedUser(t, store, "user-2", "b@example.com")
	now := time.Now()

	seedAlias(t, store, "user-1", "a1", "x@example.com", true, now)
	seedAlias(t, store, "user-2", "a2", "y@example.com", true, now)
	require.NoError(t, store.CreateSession(ctx, &domain.Session{ID: "s1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.CreateCustomDomain(ctx, &domain.CustomDomain{ID: "d1", UserID: "user-1", DomainName: "example.com"}))

	require.NoError(t, store.DeleteUser(ctx, "user-1"))

	_, err := store.GetUserByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	count, _ := store.CountCustomDomains(ctx, "user-1")
	assert.Zero(t, count)

	active, _ := store.CountActiveAliases(ctx, "user-2")
	assert.Equal(t, 1, active)
}

func TestMemoryStore_AliasOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Now()
	seedAlias(t, store, "user-1", "a1", "one@example.com", true, base)
	seedAlias(t, store, "user-1", "a2", "two@example.com", false, base.Add(time.Second))
	seedAlias(t, store, "user-1", "a3", "three@example.com", true, base.Add(2*time.Second))
	seedAlias(t, store, "user-2", "b1", "one@example.com", true, base)

	t.Run("地址在同一用户内唯一", func(t *testing.T) {
		err := store.CreateAlias(ctx, &domain.Alias{ID: "dup", UserID: "user-1", Address: "one@example.com"})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("按创建时间倒序", func(t *testing.T) {
		list, err := store.ListAliases(ctx, "user-1", storage.AliasFilter{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a3", "a2", "a1"}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("过滤条件", func(t *testing.T) {
		active := true
		list, err := store.ListAliases(ctx, "user-1", storage.AliasFilter{Active: &active, Limit: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a3", list[0].ID)

		list, err = store.ListAliases(ctx, "user-1", storage.AliasFilter{IDs: []string{"a1", "b1"}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a1", list[0].ID)
	})

	t.Run("不能读取其他用户的别名", func(t *testing.T) {
		_, err := store.GetAlias(ctx, "user-2", "a1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("搜索不区分大小写", func(t *testing.T) {
		list, err := store.SearchAliases(ctx, "user-1", "TWO", 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a2", list[0].ID)
	})

	t.Run("批量修改只计算真正变化的行", func(t *testing.T) {
		n, err := store.SetAliasesActive(ctx, "user-1", []string{"a1", "a2", "a2", "b1"}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		active, inactive, err := store.CountAliases(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, active)
		assert.Zero(t, inactive)

		n, err = store.SetAliasesActive(ctx, "user-1", nil, false)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMemoryStore_DeletedAliases(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Now()

	err := store.CreateDeletedAliases(ctx, []*domain.DeletedAlias{
		{ID: "d1", UserID: "user-1", Address: "one@example.com", DeletedAt: base},
		{ID: "d2", UserID: "user-1", Address: "two@example.com", DeletedAt: base.Add(time.Minute)},
	})
	require.NoError(t, err)

	list, err := store.ListDeletedAliases(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d2", list[0].ID)

	n, err := store.PurgeDeletedAliases(ctx, "user-1", []string{"d1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.CountDeletedAliases(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.CreateSession(ctx, &domain.Session{ID: "s1", UserID: "u", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.CreateSession(ctx, &domain.Session{ID: "s2", UserID: "u", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.CreateSession(ctx, &domain.Session{ID: "s3", UserID: "u", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}))

	list, err := store.ListSessions(ctx, "u", now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)

	removed, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = store.DeleteSessionsExcept(ctx, "u", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	require.NoError(t, store.DeleteSession(ctx, "s1"))
}

func TestMemoryStore_Registry(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.CreateCustomDomain(ctx, &domain.CustomDomain{ID: "d1", UserID: "u", DomainName: "a.com", IsActive: true}))
	require.NoError(t, store.CreateCustomDomain(ctx, &domain.CustomDomain{ID: "d2", UserID: "u", DomainName: "b.com"}))

	found, err := store.FindCustomDomainByName(ctx, "u", "A.COM")
	require.NoError(t, err)
	assert.Equal(t, "d1", found.ID)

	active, err := store.ListCustomDomains(ctx, "u", true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	err = store.UpdateCustomDomain(ctx, &domain.CustomDomain{ID: "d2", UserID: "u", DomainName: "a.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	err = store.DeleteCustomDomain(ctx, "other", "d1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.CreateCustomUsername(ctx, &domain.CustomUsername{ID: "n1", UserID: "u", Username: "me@example.com"}))
	taken, err := store.CustomUsernameTaken(ctx, "ME@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestMemoryStore_WithinUserTx(t *testing.T) {
	ctx := context.Background()

	t.Run("出错时回滚", func(t *testing.T) {
		store := NewStore()
		seedUser(t, store, "u", "u@example.com")
		err := store.WithinUserTx(ctx, "u", func(tx storage.Store) error {
			seedAlias(t, tx.(*Store), "u", "a1", "x@example.com", true, time.Now())
			return errors.New("boom")
		})
		require.Error(t, err)

		count, _ := store.CountActiveAliases(ctx, "u")
		assert.Zero(t, count)
	})

	t.Run("成功时提交", func(t *testing.T) {
		store := NewStore()
		seedUser(t, store, "u", "u@example.com")
		err := store.WithinUserTx(ctx, "u", func(tx storage.Store) error {
			return tx.CreateAlias(ctx, &domain.Alias{ID: "a1", UserID: "u", Address: "x@example.com", IsActive: true})
		})
		require.NoError(t, err)

		count, _ := store.CountActiveAliases(ctx, "u")
		assert.Equal(t, 1, count)
	})

	t.Run("并发写入串行化", func(t *testing.T) {
		store := NewStore()
		seedUser(t, store, "u", "u@example.com")
		const limit = 5

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = store.WithinUserTx(ctx, "u", func(tx storage.Store) error {
					n, err := tx.CountActiveAliases(ctx, "u")
					if err != nil {
						return err
					}
					if n >= limit {
						return errors.New("limit reached")
					}
					return tx.CreateAlias(ctx, &domain.Alias{
						ID:       fmt.Sprintf("a%d", i),
						UserID:   "u",
						Address:  fmt.Sprintf("x%d@example.com", i),
						IsActive: true,
					})
				})
			}(i)
		}
		wg.Wait()

		count, _ := store.CountActiveAliases(ctx, "u")
		assert.Equal(t, limit, count)
	})

	t.Run("用户不存在", func(t *testing.T) {
		store := NewStore()
		called := false
		err := store.WithinUserTx(ctx, "ghost", func(tx storage.Store) error {
			called = true
			return tx.CreateAlias(ctx, &domain.Alias{ID: "a1", UserID: "ghost", Address: "x@example.com", IsActive: true})
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.False(t, called)

		aliases, err := store.ListAliases(ctx, "ghost", storage.AliasFilter{})
		require.NoError(t, err)
		assert.Empty(t, aliases)
	})
}

func TestMemoryStore_RateLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i := int64(1); i <= 3; i++ {
		n, err := store.IncrementRateLimit(ctx, "login:a@example.com", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	require.NoError(t, store.ResetRateLimit(ctx, "login:a@example.com"))
	n, err := store.IncrementRateLimit(ctx, "login:a@example.com", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
