package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage/memory"
)

func TestSettingsService_Profile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user-1", "alice@example.com")

	notifier := &recordingNotifier{}
	svc := NewSettingsService(store, nil, nil)
	svc.SetNotifier(notifier)

	profile, err := svc.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "alice", profile.DisplayName)
	assert.Equal(t, domain.ThemeSystem, profile.Theme)

	msg, err := svc.UpdateProfile(ctx, "user-1", ProfileInput{DisplayName: " Alice ", FirstName: "Alice", LastName: " Liddell "})
	require.NoError(t, err)
	assert.Equal(t, "Profile updated successfully!", msg)
	assert.Equal(t, []string{domain.EventSettingsChanged}, notifier.types("user-1"))

	profile, err = svc.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.DisplayName)
	assert.Equal(t, "Liddell", profile.LastName)

	t.Run("显示名不能为空", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, "user-1", ProfileInput{DisplayName: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := svc.Profile(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSettingsService_MissingRow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := &domain.User{ID: "user-1", Email: "alice@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateUser(ctx, user, nil))

	svc := NewSettingsService(store, nil, nil)

	settings, err := svc.Settings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings("user-1", "alice@example.com"), settings)

	_, err = svc.UpdateTheme(ctx, "user-1", domain.ThemeDark)
	require.NoError(t, err)

	saved, err := store.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, saved.Theme)
	assert.Equal(t, "alice", saved.DisplayName)
}

func TestSettingsService_Validation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user-1", "alice@example.com")
	svc := NewSettingsService(store, nil, nil)

	testCases := []struct {
		name    string
		update  func() (string, error)
		message string
	}{
		{
			name:    "主题取值无效",
			update:  func() (string, error) { return svc.UpdateTheme(ctx, "user-1", "blue") },
			message: "Invalid theme value.",
		},
		{
			name: "默认数量超出范围",
			update: func() (string, error) {
				return svc.UpdatePreferences(ctx, "user-1", PreferencesInput{DefaultAliasCount: 6, DefaultAliasLength: 12})
			},
			message: "Default alias count must be between 1 and 5.",
		},
		{
			name: "默认长度无效",
			update: func() (string, error) {
				return svc.UpdatePreferences(ctx, "user-1", PreferencesInput{DefaultAliasCount: 2, DefaultAliasLength: 14})
			},
			message: "Default alias length must be 12 or 16.",
		},
		{
			name: "分隔符无效",
			update: func() (string, error) {
				return svc.UpdateAliasRules(ctx, "user-1", AliasRulesInput{Separator: "+", Case: domain.AliasCaseMixed})
			},
			message: "Alias separator must be one of '-', '_' or '.'.",
		},
		{
			name: "大小写风格无效",
			update: func() (string, error) {
				return svc.UpdateAliasRules(ctx, "user-1", AliasRulesInput{Separator: "_", Case: "title"})
			},
			message: "Alias case must be mixed, lowercase or uppercase.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.update()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tc.message, domain.MessageOf(err))
		})
	}

	before, err := svc.Settings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MinDefaultAliasCount, before.DefaultAliasCount)

	msg, err := svc.UpdatePreferences(ctx, "user-1", PreferencesInput{DefaultAliasCount: 5, DefaultAliasLength: 16})
	require.NoError(t, err)
	assert.Equal(t, "Application preferences updated successfully!", msg)

	msg, err = svc.UpdateAliasRules(ctx, "user-1", AliasRulesInput{Separator: "_", Case: domain.AliasCaseUppercase})
	require.NoError(t, err)
	assert.Equal(t, "Alias generation rules updated!", msg)

	msg, err = svc.UpdateNotifications(ctx, "user-1", NotificationInput{SendWeeklySummary: true})
	require.NoError(t, err)
	assert.Equal(t, "Notification preferences updated successfully!", msg)

	after, err := svc.Settings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, after.DefaultAliasCount)
	assert.Equal(t, 16, after.DefaultAliasLength)
	assert.Equal(t, "_", after.AliasSeparator)
	assert.Equal(t, domain.AliasCaseUppercase, after.AliasCase)
	assert.False(t, after.NotifyOnAliasCreation)
	assert.True(t, after.SendWeeklySummary)
}
