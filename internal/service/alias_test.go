package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage/memory"
)

func newAliasService(t *testing.T, limits Limits) (*AliasService, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.NewStore()
	seedUser(t, store, "user-1", "alice@example.com")
	seedUser(t, store, "user-2", "bob@example.com")

	notifier := &recordingNotifier{}
	svc := NewAliasService(store, limits, nil, nil)
	svc.SetNotifier(notifier)
	return svc, store, notifier
}

func createAlias(t *testing.T, svc *AliasService, userID, address string, active bool) *domain.Alias {
	t.Helper()
	alias, err := svc.Create(context.Background(), userID, CreateAliasInput{
		Address:     address,
		Description: "Shop",
		Active:      boolPtr(active),
	})
	require.NoError(t, err)
	return alias
}

func TestAliasService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newAliasService(t, DefaultLimits())

	alias, err := svc.Create(ctx, "user-1", CreateAliasInput{
		Address:     " a.lice+Shop-x1@example.com ",
		Description: " Shop ",
	})
	require.NoError(t, err)
	assert.Equal(t, "a.lice+Shop-x1@example.com", alias.Address)
	assert.Equal(t, "Shop", alias.Description)
	assert.True(t, alias.IsActive)
	assert.Equal(t, []string{domain.EventAliasesChanged}, notifier.types("user-1"))

	testCases := []struct {
		name    string
		input   CreateAliasInput
		kind    error
		message string
	}{
		{
			name:    "地址格式无效",
			input:   CreateAliasInput{Address: "not-an-address", Description: "Shop"},
			kind:    domain.ErrValidation,
			message: "Please enter a valid email address.",
		},
		{
			name:    "描述为空",
			input:   CreateAliasInput{Address: "a+b@example.com", Description: "   "},
			kind:    domain.ErrValidation,
			message: "Description cannot be empty.",
		},
		{
			name:    "地址已存在",
			input:   CreateAliasInput{Address: "a.lice+Shop-x1@example.com", Description: "Again"},
			kind:    domain.ErrConflict,
			message: "This alias has already been saved.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.message, domain.MessageOf(err))
		})
	}

	t.Run("不同用户可以保存相同地址", func(t *testing.T) {
		_, err := svc.Create(ctx, "user-2", CreateAliasInput{Address: "a.lice+Shop-x1@example.com", Description: "Shop"})
		assert.NoError(t, err)
	})
}

func TestAliasService_ActiveLimit(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, DefaultLimits())

	for i := 0; i < 30; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+a%d@example.com", i), true)
	}

	t.Run("第31个启用别名被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, "user-1", CreateAliasInput{Address: "alice+a30@example.com", Description: "Shop"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
		assert.Equal(t,
			"You have reached the limit of 30 active aliases. Please deactivate or delete an alias to add a new one.",
			domain.MessageOf(err))
	})

	t.Run("停用状态的别名不受上限约束", func(t *testing.T) {
		alias := createAlias(t, svc, "user-1", "alice+off@example.com", false)
		assert.False(t, alias.IsActive)
	})

	t.Run("达到上限后不能再启用", func(t *testing.T) {
		aliases, err := svc.List(ctx, "user-1", domain.AliasStateInactive)
		require.NoError(t, err)
		require.Len(t, aliases, 1)

		err = svc.SetActive(ctx, "user-1", aliases[0].ID, true)
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
		assert.Equal(t, "You have reached the limit of 30 active aliases.", domain.MessageOf(err))
	})

	t.Run("其他用户不受影响", func(t *testing.T) {
		createAlias(t, svc, "user-2", "bob+a@example.com", true)
	})

	counts, err := svc.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 30, counts.Active)
	assert.Equal(t, 1, counts.Inactive)
	assert.Equal(t, 30, counts.Limit)
}

func TestAliasService_SetActive(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newAliasService(t, DefaultLimits())
	alias := createAlias(t, svc, "user-1", "alice+shop@example.com", true)

	require.NoError(t, svc.SetActive(ctx, "user-1", alias.ID, false))
	inactive, err := svc.List(ctx, "user-1", domain.AliasStateInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, alias.ID, inactive[0].ID)

	t.Run("状态未变化时不发送事件", func(t *testing.T) {
		before := len(notifier.types("user-1"))
		require.NoError(t, svc.SetActive(ctx, "user-1", alias.ID, false))
		assert.Len(t, notifier.types("user-1"), before)
	})

	t.Run("不存在的别名", func(t *testing.T) {
		err := svc.SetActive(ctx, "user-1", "missing", true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, "Failed to update alias status. Not found or no permission.", domain.MessageOf(err))
	})
}

func TestAliasService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newAliasService(t, DefaultLimits())
	alias := createAlias(t, svc, "user-1", "alice+shop@example.com", true)

	assert.ErrorIs(t, svc.SetActive(ctx, "user-2", alias.ID, false), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "user-2", alias.ID), domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "user-1", alias.ID))
	_, err := svc.Restore(ctx, "user-2", alias.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.PermanentlyDelete(ctx, "user-2", alias.ID), domain.ErrNotFound)

	result, err := svc.DeleteActive(ctx, "user-2", []string{alias.ID})
	require.NoError(t, err)
	assert.Zero(t, result.Affected)

	deleted, err := store.ListDeletedAliases(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	mine, err := svc.ListDeleted(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestAliasService_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	limits := Limits{ActiveAliases: 3, Domains: 10, Usernames: 2}
	svc, _, _ := newAliasService(t, limits)

	a := createAlias(t, svc, "user-1", "alice+a@example.com", true)
	createAlias(t, svc, "user-1", "alice+b@example.com", true)
	c := createAlias(t, svc, "user-1", "alice+c@example.com", true)

	require.NoError(t, svc.Delete(ctx, "user-1", c.ID))

	deleted, err := svc.ListDeleted(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, c.ID, deleted[0].ID)
	assert.Equal(t, c.Address, deleted[0].Address)
	assert.True(t, c.CreatedAt.Equal(deleted[0].CreatedAt))

	t.Run("有空余名额时恢复为启用", func(t *testing.T) {
		result, err := svc.Restore(ctx, "user-1", c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alias has been restored and set to active.", result.Message)
		assert.False(t, result.Partial)

		counts, err := svc.Counts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, counts.Active)
		assert.Equal(t, 0, counts.Deleted)
	})

	t.Run("名额已满时恢复为停用", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "user-1", a.ID))
		createAlias(t, svc, "user-1", "alice+d@example.com", true)

		result, err := svc.Restore(ctx, "user-1", a.ID)
		require.NoError(t, err)
		assert.True(t, result.Partial)
		assert.Equal(t,
			"Alias has been restored as inactive because you have reached your active alias limit.",
			result.Message)

		counts, err := svc.Counts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, counts.Active)
		assert.Equal(t, 1, counts.Inactive)
	})

	t.Run("在用列表已有相同地址", func(t *testing.T) {
		e := createAlias(t, svc, "user-1", "alice+e@example.com", false)
		require.NoError(t, svc.Delete(ctx, "user-1", e.ID))
		createAlias(t, svc, "user-1", "alice+e@example.com", false)

		_, err := svc.Restore(ctx, "user-1", e.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, "This alias already exists in your active list.", domain.MessageOf(err))

		deleted, err := svc.ListDeleted(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, deleted, 1)
	})

	t.Run("永久删除", func(t *testing.T) {
		deleted, err := svc.ListDeleted(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, deleted, 1)

		require.NoError(t, svc.PermanentlyDelete(ctx, "user-1", deleted[0].ID))
		assert.ErrorIs(t, svc.PermanentlyDelete(ctx, "user-1", deleted[0].ID), domain.ErrNotFound)
	})
}

func TestAliasService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, DefaultLimits())

	for i := 0; i < 10; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+shop%d@example.com", i), i%2 == 0)
	}
	createAlias(t, svc, "user-2", "bob+shop@example.com", true)

	t.Run("空查询返回空结果", func(t *testing.T) {
		results, err := svc.Search(ctx, "user-1", "   ")
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("结果数量受限且只包含自己的别名", func(t *testing.T) {
		results, err := svc.Search(ctx, "user-1", "SHOP")
		require.NoError(t, err)
		assert.Len(t, results, SearchLimit)
		for _, a := range results {
			assert.Equal(t, "user-1", a.UserID)
		}
	})
}

func TestAliasService_LifecycleConservation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, Limits{ActiveAliases: 2, Domains: 10, Usernames: 2})

	total := func() int {
		counts, err := svc.Counts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, counts.Active+counts.Inactive+counts.Deleted, counts.Total)
		assert.LessOrEqual(t, counts.Active, 2)
		return counts.Total
	}

	a := createAlias(t, svc, "user-1", "alice+a@example.com", true)
	b := createAlias(t, svc, "user-1", "alice+b@example.com", true)
	createAlias(t, svc, "user-1", "alice+c@example.com", false)
	createAlias(t, svc, "user-1", "alice+d@example.com", false)
	require.Equal(t, 4, total())

	require.NoError(t, svc.Delete(ctx, "user-1", a.ID))
	assert.Equal(t, 4, total())

	_, err := svc.ActivateInactive(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, total())

	_, err = svc.Restore(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, total())

	_, err = svc.DeleteActive(ctx, "user-1", []string{b.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, total())

	_, err = svc.RestoreDeleted(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, total())

	require.NoError(t, svc.Delete(ctx, "user-1", b.ID))
	assert.Equal(t, 4, total())

	require.NoError(t, svc.PermanentlyDelete(ctx, "user-1", b.ID))
	assert.Equal(t, 3, total())
}
