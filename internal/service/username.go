package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

const msgUsernameNotFound = "Failed to update username. Not found or no permission."

// UsernameService 自定义用户名（额外发件身份）服务
type UsernameService struct {
	base
	limits Limits
}

// NewUsernameService 创建自定义用户名服务
func NewUsernameService(store storage.Store, limits Limits, log *zap.Logger, metrics *monitoring.Metrics) *UsernameService {
	return &UsernameService{
		base:   newBase(store, log, metrics),
		limits: limits,
	}
}

// UsernameInput 添加用户名的输入
type UsernameInput struct {
	Username    string
	Description string
}

// List 列出用户的全部自定义用户名
func (s *UsernameService) List(ctx context.Context, userID string) ([]*domain.CustomUsername, error) {
	usernames, err := s.store.ListCustomUsernames(ctx, userID, false)
	if err != nil {
		return nil, s.fail("username", msgDBError, err)
	}
	return usernames, nil
}

// Create 添加自定义用户名。
// 不能与主邮箱（不区分大小写）或显示名（区分大小写）相同，同一用户内不能重复。
func (s *UsernameService) Create(ctx context.Context, userID string, input UsernameInput) (*domain.CustomUsername, error) {
	username := strings.TrimSpace(input.Username)

	u := &domain.CustomUsername{
		ID:          uuid.NewString(),
		UserID:      userID,
		Username:    username,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		count, err := tx.CountCustomUsernames(ctx, userID)
		if err != nil {
			return err
		}
		if count >= s.limits.Usernames {
			s.metrics.RecordQuotaRejection(resourceUsernames)
			return s.limits.usernameLimitError()
		}

		if !domain.ValidateEmail(username) {
			return domain.Validation("Please enter a valid email address.")
		}

		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return notFound(err, "User not found.")
		}
		if strings.EqualFold(username, user.Email) {
			return domain.Validation("This is your primary email and cannot be added as a custom username.")
		}
		settings, err := tx.GetSettings(ctx, userID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if settings != nil && username == settings.DisplayName {
			return domain.Validation("This is your display name and cannot be added as a custom username.")
		}

		existing, err := tx.ListCustomUsernames(ctx, userID, false)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if strings.EqualFold(e.Username, username) {
				return domain.Conflict("This username has already been added.")
			}
		}

		if err := tx.CreateCustomUsername(ctx, u); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return domain.Conflict("This username has already been added.")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("username", "An unexpected error occurred.", err)
	}

	s.publish(userID, domain.EventUsernamesChanged)
	s.log.Info("Custom username added", zap.String("user_id", userID), zap.String("username_id", u.ID))
	return u, nil
}

// Update 修改用户名描述
func (s *UsernameService) Update(ctx context.Context, userID, id, description string) (*domain.CustomUsername, error) {
	var updated *domain.CustomUsername
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		u, err := tx.GetCustomUsername(ctx, userID, id)
		if err != nil {
			return notFound(err, msgUsernameNotFound)
		}
		u.Description = strings.TrimSpace(description)
		if err := tx.UpdateCustomUsername(ctx, u); err != nil {
			return notFound(err, msgUsernameNotFound)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, s.fail("username", "An unexpected error occurred.", err)
	}

	s.publish(userID, domain.EventUsernamesChanged)
	return updated, nil
}

// SetActive 启用或停用用户名
func (s *UsernameService) SetActive(ctx context.Context, userID, id string, active bool) error {
	const msg = "Failed to update username status. Not found or no permission."
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		u, err := tx.GetCustomUsername(ctx, userID, id)
		if err != nil {
			return notFound(err, msg)
		}
		if u.IsActive == active {
			return nil
		}
		u.IsActive = active
		return notFound(tx.UpdateCustomUsername(ctx, u), msg)
	})
	if err != nil {
		return s.fail("username", "Failed to update username status.", err)
	}

	s.publish(userID, domain.EventUsernamesChanged)
	return nil
}

// Delete 永久删除用户名
func (s *UsernameService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCustomUsername(ctx, userID, id); err != nil {
		return s.fail("username", "Failed to delete username.",
			notFound(err, "Failed to delete username. Not found or no permission."))
	}

	s.publish(userID, domain.EventUsernamesChanged)
	return nil
}
