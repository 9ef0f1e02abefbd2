package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

// SettingsService 个人资料与偏好设置服务
type SettingsService struct {
	base
}

// NewSettingsService 创建设置服务
func NewSettingsService(store storage.Store, log *zap.Logger, metrics *monitoring.Metrics) *SettingsService {
	return &SettingsService{base: newBase(store, log, metrics)}
}

// Profile 个人资料
type Profile struct {
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Theme       domain.Theme `json:"theme"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ProfileInput 修改个人资料的输入
type ProfileInput struct {
	DisplayName string
	FirstName   string
	LastName    string
}

// PreferencesInput 应用偏好
type PreferencesInput struct {
	DefaultAliasCount  int
	DefaultAliasLength int
}

// NotificationInput 通知偏好
type NotificationInput struct {
	NotifyOnAliasCreation bool
	NotifyOnSecurityEvent bool
	SendWeeklySummary     bool
}

// AliasRulesInput 别名生成规则
type AliasRulesInput struct {
	Separator string
	Case      domain.AliasCase
}

// Profile 获取个人资料，缺少设置行时使用默认值
func (s *SettingsService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.fail("settings", msgDBError, notFound(err, "User not found."))
	}
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Email:       user.Email,
		DisplayName: settings.DisplayName,
		FirstName:   settings.FirstName,
		LastName:    settings.LastName,
		Theme:       settings.Theme,
		CreatedAt:   user.CreatedAt,
	}, nil
}

// Settings 获取设置，缺少设置行时返回默认值
func (s *SettingsService) Settings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !isNotFound(err) {
		return nil, s.fail("settings", msgDBError, err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.fail("settings", msgDBError, notFound(err, "User not found."))
	}
	return domain.DefaultSettings(userID, user.Email), nil
}

// UpdateProfile 修改显示名与姓名
func (s *SettingsService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (string, error) {
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return "", domain.Validation("Display name cannot be empty.")
	}
	err := s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.DisplayName = displayName
		settings.FirstName = strings.TrimSpace(input.FirstName)
		settings.LastName = strings.TrimSpace(input.LastName)
	})
	if err != nil {
		return "", err
	}
	return "Profile updated successfully!", nil
}

// UpdateTheme 修改界面主题
func (s *SettingsService) UpdateTheme(ctx context.Context, userID string, theme domain.Theme) (string, error) {
	if !domain.ValidTheme(theme) {
		return "", domain.Validation("Invalid theme value.")
	}
	if err := s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.Theme = theme
	}); err != nil {
		return "", err
	}
	return "Theme updated successfully!", nil
}

// UpdatePreferences 修改默认生成数量与长度
func (s *SettingsService) UpdatePreferences(ctx context.Context, userID string, input PreferencesInput) (string, error) {
	if input.DefaultAliasCount < domain.MinDefaultAliasCount || input.DefaultAliasCount > domain.MaxDefaultAliasCount {
		return "", domain.Validation("Default alias count must be between 1 and 5.")
	}
	if input.DefaultAliasLength != domain.DefaultAliasLength && input.DefaultAliasLength != domain.LongAliasLength {
		return "", domain.Validation("Default alias length must be 12 or 16.")
	}
	if err := s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.DefaultAliasCount = input.DefaultAliasCount
		settings.DefaultAliasLength = input.DefaultAliasLength
	}); err != nil {
		return "", err
	}
	return "Application preferences updated successfully!", nil
}

// UpdateNotifications 修改通知开关
func (s *SettingsService) UpdateNotifications(ctx context.Context, userID string, input NotificationInput) (string, error) {
	if err := s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.NotifyOnAliasCreation = input.NotifyOnAliasCreation
		settings.NotifyOnSecurityEvent = input.NotifyOnSecurityEvent
		settings.SendWeeklySummary = input.SendWeeklySummary
	}); err != nil {
		return "", err
	}
	return "Notification preferences updated successfully!", nil
}

// UpdateAliasRules 修改别名分隔符与大小写风格
func (s *SettingsService) UpdateAliasRules(ctx context.Context, userID string, input AliasRulesInput) (string, error) {
	if !domain.ValidAliasSeparator(input.Separator) {
		return "", domain.Validation("Alias separator must be one of '-', '_' or '.'.")
	}
	if !domain.ValidAliasCase(input.Case) {
		return "", domain.Validation("Alias case must be mixed, lowercase or uppercase.")
	}
	if err := s.update(ctx, userID, func(settings *domain.UserSettings) {
		settings.AliasSeparator = input.Separator
		settings.AliasCase = input.Case
	}); err != nil {
		return "", err
	}
	return "Alias generation rules updated!", nil
}

// update 在用户事务中读取、修改并保存设置
func (s *SettingsService) update(ctx context.Context, userID string, mutate func(*domain.UserSettings)) error {
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		settings, err := tx.GetSettings(ctx, userID)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			user, err := tx.GetUserByID(ctx, userID)
			if err != nil {
				return notFound(err, "User not found.")
			}
			settings = domain.DefaultSettings(userID, user.Email)
		}
		mutate(settings)
		settings.UpdatedAt = time.Now().UTC()
		return tx.SaveSettings(ctx, settings)
	})
	if err != nil {
		return s.fail("settings", msgDBError, err)
	}

	s.publish(userID, domain.EventSettingsChanged)
	return nil
}
