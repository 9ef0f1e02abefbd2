package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage/memory"
)

const testSecret = "test-secret-key-for-development-32-chars-long-at-least"

func newTestManager(t *testing.T) (*SessionManager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewSessionManager(store, testSecret, time.Hour, nil), store
}

func TestSessionManager_IssueAndResolve(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	token, session, err := m.Issue(ctx, "user-1", domain.ClientMeta{UserAgent: "Firefox", IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	t.Run("令牌格式为会话ID加密钥", func(t *testing.T) {
		id, secret, ok := strings.Cut(token, ".")
		require.True(t, ok)
		assert.Equal(t, session.ID, id)
		assert.Len(t, secret, 64)
	})

	t.Run("存储中不含明文密钥", func(t *testing.T) {
		stored, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		_, secret, _ := strings.Cut(token, ".")
		assert.NotContains(t, stored.TokenHash, secret)
		assert.Len(t, stored.TokenHash, 64)
		assert.Equal(t, "Firefox", stored.UserAgent)
		assert.Equal(t, time.Hour, stored.ExpiresAt.Sub(stored.CreatedAt))
	})

	t.Run("有效令牌解析成功", func(t *testing.T) {
		resolved, ok := m.Resolve(ctx, token)
		require.True(t, ok)
		assert.Equal(t, "user-1", resolved.UserID)
	})

	t.Run("密钥被篡改时解析失败", func(t *testing.T) {
		tampered := session.ID + "." + strings.Repeat("a", 64)
		_, ok := m.Resolve(ctx, tampered)
		assert.False(t, ok)
	})

	t.Run("不同服务密钥无法解析", func(t *testing.T) {
		other := NewSessionManager(store, strings.Repeat("z", 40), time.Hour, nil)
		_, ok := other.Resolve(ctx, token)
		assert.False(t, ok)
	})
}

func TestSessionManager_ResolveMalformed(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	testCases := []struct {
		name  string
		token string
	}{
		{name: "空令牌", token: ""},
		{name: "缺少分隔符", token: "abcdef"},
		{name: "ID不是UUID", token: "not-a-uuid." + strings.Repeat("a", 64)},
		{name: "密钥长度错误", token: uuid.New().String() + ".abcd"},
		{name: "密钥不是十六进制", token: uuid.New().String() + "." + strings.Repeat("g", 64)},
		{name: "会话不存在", token: uuid.New().String() + "." + strings.Repeat("a", 64)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session, ok := m.Resolve(ctx, tc.token)
			assert.False(t, ok)
			assert.Nil(t, session)
		})
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	token, _, err := m.Issue(ctx, "user-1", domain.ClientMeta{})
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, ok := m.Resolve(ctx, token)
	assert.True(t, ok, "过期前仍然有效")

	m.now = func() time.Time { return base.Add(time.Hour) }
	_, ok = m.Resolve(ctx, token)
	assert.False(t, ok, "到达过期时间即失效")

	removed, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSessionManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	token, session, err := m.Issue(ctx, "user-1", domain.ClientMeta{})
	require.NoError(t, err)

	t.Run("密钥不匹配时不删除", func(t *testing.T) {
		require.NoError(t, m.Invalidate(ctx, session.ID+"."+strings.Repeat("b", 64)))
		_, err := store.GetSession(ctx, session.ID)
		assert.NoError(t, err)
	})

	t.Run("注销后无法解析", func(t *testing.T) {
		require.NoError(t, m.Invalidate(ctx, token))
		_, ok := m.Resolve(ctx, token)
		assert.False(t, ok)
	})

	t.Run("重复注销仍然成功", func(t *testing.T) {
		assert.NoError(t, m.Invalidate(ctx, token))
		assert.NoError(t, m.Invalidate(ctx, "garbage"))
	})
}

func TestSessionManager_InvalidateAllExcept(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	current, _, err := m.Issue(ctx, "user-1", domain.ClientMeta{UserAgent: "current"})
	require.NoError(t, err)
	other1, _, err := m.Issue(ctx, "user-1", domain.ClientMeta{UserAgent: "phone"})
	require.NoError(t, err)
	other2, _, err := m.Issue(ctx, "user-1", domain.ClientMeta{UserAgent: "tablet"})
	require.NoError(t, err)
	stranger, _, err := m.Issue(ctx, "user-2", domain.ClientMeta{})
	require.NoError(t, err)

	list, err := m.Sessions(ctx, "user-1", current)
	require.NoError(t, err)
	require.NotNil(t, list.Current)
	assert.Equal(t, "current", list.Current.UserAgent)
	assert.Len(t, list.Others, 2)

	removed, err := m.InvalidateAllExcept(ctx, "user-1", current)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, ok := m.Resolve(ctx, current)
	assert.True(t, ok)
	_, ok = m.Resolve(ctx, other1)
	assert.False(t, ok)
	_, ok = m.Resolve(ctx, other2)
	assert.False(t, ok)
	_, ok = m.Resolve(ctx, stranger)
	assert.True(t, ok, "其他用户的会话不受影响")

	t.Run("当前令牌无效时删除全部", func(t *testing.T) {
		removed, err := m.InvalidateAllExcept(ctx, "user-1", "garbage")
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})
}
