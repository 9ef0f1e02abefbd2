package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/domain"
)

func TestAliasService_DeleteInactive(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newAliasService(t, DefaultLimits())

	keep := createAlias(t, svc, "user-1", "alice+keep@example.com", true)
	for i := 0; i < 3; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+old%d@example.com", i), false)
	}
	createAlias(t, svc, "user-2", "bob+old@example.com", false)

	result, err := svc.DeleteInactive(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Affected)
	assert.Equal(t, "Selected inactive aliases have been moved to the deleted history.", result.Message)

	counts, err := svc.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 0, counts.Inactive)
	assert.Equal(t, 3, counts.Deleted)

	t.Run("重复执行没有可删除的别名", func(t *testing.T) {
		before := len(notifier.types("user-1"))
		result, err := svc.DeleteInactive(ctx, "user-1", []string{})
		require.NoError(t, err)
		assert.Zero(t, result.Affected)
		assert.Equal(t, "No matching inactive aliases to delete.", result.Message)
		assert.Len(t, notifier.types("user-1"), before)
	})

	t.Run("启用中的别名不会被删除", func(t *testing.T) {
		result, err := svc.DeleteInactive(ctx, "user-1", []string{keep.ID})
		require.NoError(t, err)
		assert.Zero(t, result.Affected)
	})

	t.Run("其他用户的别名不受影响", func(t *testing.T) {
		counts, err := svc.Counts(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Inactive)
		assert.Equal(t, 0, counts.Deleted)
	})
}

func TestAliasService_DeleteActiveSelected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, DefaultLimits())

	a := createAlias(t, svc, "user-1", "alice+a@example.com", true)
	b := createAlias(t, svc, "user-1", "alice+b@example.com", true)
	createAlias(t, svc, "user-1", "alice+c@example.com", true)

	result, err := svc.DeleteActive(ctx, "user-1", []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)
	assert.Equal(t, "Selected active aliases have been moved to the deleted history.", result.Message)

	deleted, err := svc.ListDeleted(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
}

func TestAliasService_ActivateInactive(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, Limits{ActiveAliases: 3, Domains: 10, Usernames: 2})

	createAlias(t, svc, "user-1", "alice+a@example.com", true)
	createAlias(t, svc, "user-1", "alice+b@example.com", true)
	for i := 0; i < 3; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+off%d@example.com", i), false)
	}

	result, err := svc.ActivateInactive(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)
	assert.True(t, result.Partial)
	assert.Equal(t,
		"Successfully activated 1 alias(es). 2 alias(es) remain inactive because you have reached your active alias limit.",
		result.Message)

	t.Run("没有剩余名额", func(t *testing.T) {
		result, err := svc.ActivateInactive(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Zero(t, result.Affected)
		assert.Equal(t, "No available slots to activate aliases. Please deactivate some first.", result.Message)
	})

	t.Run("批量停用后全部启用", func(t *testing.T) {
		result, err := svc.DeactivateActive(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "Successfully deactivated 3 alias(es).", result.Message)

		result, err = svc.ActivateInactive(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Affected)

		counts, err := svc.Counts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, counts.Active)
		assert.Equal(t, 2, counts.Inactive)
	})

	t.Run("没有停用的别名", func(t *testing.T) {
		svc, _, _ := newAliasService(t, DefaultLimits())
		createAlias(t, svc, "user-1", "alice+a@example.com", true)

		result, err := svc.ActivateInactive(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "No inactive aliases to activate.", result.Message)
	})
}

func TestAliasService_RestoreDeleted(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, Limits{ActiveAliases: 3, Domains: 10, Usernames: 2})

	t.Run("没有可恢复的别名", func(t *testing.T) {
		result, err := svc.RestoreDeleted(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "No aliases to restore.", result.Message)
	})

	for i := 0; i < 4; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+d%d@example.com", i), false)
	}
	_, err := svc.DeleteInactive(ctx, "user-1", nil)
	require.NoError(t, err)
	createAlias(t, svc, "user-1", "alice+live@example.com", true)

	result, err := svc.RestoreDeleted(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)
	assert.True(t, result.Partial)
	assert.Equal(t,
		"Successfully restored 2 alias(es). 2 alias(es) remain deleted because you have reached your active alias limit.",
		result.Message)

	counts, err := svc.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Active)
	assert.Equal(t, 2, counts.Deleted)

	t.Run("名额已满", func(t *testing.T) {
		result, err := svc.RestoreDeleted(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Zero(t, result.Affected)
		assert.Equal(t, "No available slots to restore aliases. Please deactivate some first.", result.Message)
	})

	t.Run("地址冲突的行被跳过", func(t *testing.T) {
		_, err := svc.DeactivateActive(ctx, "user-1", nil)
		require.NoError(t, err)

		deleted, err := svc.ListDeleted(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, deleted, 2)
		createAlias(t, svc, "user-1", deleted[0].Address, false)

		result, err := svc.RestoreDeleted(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Affected)
		assert.True(t, result.Partial)
		assert.Equal(t,
			"Successfully restored 1 alias(es). 1 alias(es) were skipped because the address already exists in your active list.",
			result.Message)

		remaining, err := svc.ListDeleted(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, deleted[0].ID, remaining[0].ID)
	})
}

func TestAliasService_PermanentlyDeleteDeleted(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAliasService(t, DefaultLimits())

	for i := 0; i < 3; i++ {
		createAlias(t, svc, "user-1", fmt.Sprintf("alice+p%d@example.com", i), true)
	}
	_, err := svc.DeleteActive(ctx, "user-1", nil)
	require.NoError(t, err)

	deleted, err := svc.ListDeleted(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, deleted, 3)

	result, err := svc.PermanentlyDeleteDeleted(ctx, "user-1", []string{deleted[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)
	assert.Equal(t, "Selected aliases have been permanently removed.", result.Message)

	result, err = svc.PermanentlyDeleteDeleted(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)

	counts, err := svc.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AliasCounts{Limit: 30}, *counts)
}
