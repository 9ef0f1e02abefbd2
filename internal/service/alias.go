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

// SearchLimit 搜索结果上限
const SearchLimit = 7

const (
	msgDBError           = "A database error occurred."
	msgAliasExists       = "This alias has already been saved."
	msgAliasLiveConflict = "This alias already exists in your active list."
)

// AliasService 别名生命周期管理：启用 / 停用 / 已删除三种状态之间的迁移。
// 所有涉及两张表的迁移都在同一个 WithinUserTx 事务中完成。
type AliasService struct {
	base
	limits Limits
	now    func() time.Time
}

// NewAliasService 创建别名业务服务。
func NewAliasService(store storage.Store, limits Limits, log *zap.Logger, metrics *monitoring.Metrics) *AliasService {
	return &AliasService{
		base:   newBase(store, log, metrics),
		limits: limits,
		now:    time.Now,
	}
}

// CreateAliasInput 定义创建别名的输入。
type CreateAliasInput struct {
	Address     string
	Description string
	Active      *bool // 为空时按启用创建
}

// Create 保存一个新别名。
func (s *AliasService) Create(ctx context.Context, userID string, input CreateAliasInput) (*domain.Alias, error) {
	address := strings.TrimSpace(input.Address)
	description := strings.TrimSpace(input.Description)
	if !domain.ValidateEmail(address) {
		return nil, domain.Validation("Please enter a valid email address.")
	}
	if description == "" {
		return nil, domain.Validation("Description cannot be empty.")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	alias := &domain.Alias{
		ID:          uuid.NewString(),
		UserID:      userID,
		Address:     address,
		Description: description,
		IsActive:    active,
		CreatedAt:   s.now().UTC(),
	}

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		if active {
			count, err := tx.CountActiveAliases(ctx, userID)
			if err != nil {
				return err
			}
			if count >= s.limits.ActiveAliases {
				s.metrics.RecordQuotaRejection(resourceActiveAliases)
				return s.limits.activeAliasLimitError(true)
			}
		}

		if _, err := tx.FindAliasByAddress(ctx, userID, address); err == nil {
			return domain.Conflict(msgAliasExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := tx.CreateAlias(ctx, alias); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return domain.Conflict(msgAliasExists)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", msgDBError, err)
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionCreated, 1)
	s.publish(userID, domain.EventAliasesChanged)
	s.log.Debug("Alias created", zap.String("user_id", userID), zap.String("alias_id", alias.ID))
	return alias, nil
}

// List 列出在用别名，新建的在前。
func (s *AliasService) List(ctx context.Context, userID string, state domain.AliasState) ([]*domain.Alias, error) {
	aliases, err := s.store.ListAliases(ctx, userID, storage.AliasFilter{Active: state.ActiveFlag()})
	if err != nil {
		return nil, s.fail("alias", msgDBError, err)
	}
	return aliases, nil
}

// Search 按地址或描述搜索，空查询返回空结果。
func (s *AliasService) Search(ctx context.Context, userID, query string) ([]*domain.Alias, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Alias{}, nil
	}
	aliases, err := s.store.SearchAliases(ctx, userID, query, SearchLimit)
	if err != nil {
		return nil, s.fail("alias", "A database error occurred during search.", err)
	}
	return aliases, nil
}

// Counts 统计各状态别名数量。
func (s *AliasService) Counts(ctx context.Context, userID string) (*domain.AliasCounts, error) {
	active, inactive, err := s.store.CountAliases(ctx, userID)
	if err != nil {
		return nil, s.fail("alias", msgDBError, err)
	}
	deleted, err := s.store.CountDeletedAliases(ctx, userID)
	if err != nil {
		return nil, s.fail("alias", msgDBError, err)
	}
	return &domain.AliasCounts{
		Total:    active + inactive + deleted,
		Active:   active,
		Inactive: inactive,
		Deleted:  deleted,
		Limit:    s.limits.ActiveAliases,
	}, nil
}

// SetActive 启用或停用单个别名，只有启用时检查配额。
func (s *AliasService) SetActive(ctx context.Context, userID, id string, active bool) error {
	changed := false
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		alias, err := tx.GetAlias(ctx, userID, id)
		if err != nil {
			return notFound(err, "Failed to update alias status. Not found or no permission.")
		}
		if alias.IsActive == active {
			return nil
		}

		if active {
			count, err := tx.CountActiveAliases(ctx, userID)
			if err != nil {
				return err
			}
			if count >= s.limits.ActiveAliases {
				s.metrics.RecordQuotaRejection(resourceActiveAliases)
				return s.limits.activeAliasLimitError(false)
			}
		}

		n, err := tx.SetAliasesActive(ctx, userID, []string{id}, active)
		if err != nil {
			return err
		}
		changed = n > 0
		return nil
	})
	if err != nil {
		return s.fail("alias", "Failed to update alias status.", err)
	}

	if changed {
		transition := monitoring.TransitionDeactivated
		if active {
			transition = monitoring.TransitionActivated
		}
		s.metrics.RecordAliasTransition(transition, 1)
		s.publish(userID, domain.EventAliasesChanged)
	}
	return nil
}

// Delete 将别名移入已删除列表，保留 ID 与创建时间。
func (s *AliasService) Delete(ctx context.Context, userID, id string) error {
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		alias, err := tx.GetAlias(ctx, userID, id)
		if err != nil {
			return notFound(err, "Failed to delete alias. Not found or no permission.")
		}
		if err := tx.CreateDeletedAliases(ctx, []*domain.DeletedAlias{alias.ToDeleted(s.now().UTC())}); err != nil {
			return err
		}
		n, err := tx.DeleteAliases(ctx, userID, []string{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("Failed to delete alias. Please try again.")
		}
		return nil
	})
	if err != nil {
		return s.fail("alias", "Failed to delete alias due to a database error.", err)
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionDeleted, 1)
	s.publish(userID, domain.EventAliasesChanged)
	return nil
}

// ListDeleted 列出已删除别名，最近删除的在前。
func (s *AliasService) ListDeleted(ctx context.Context, userID string) ([]*domain.DeletedAlias, error) {
	aliases, err := s.store.ListDeletedAliases(ctx, userID, nil)
	if err != nil {
		return nil, s.fail("alias", msgDBError, err)
	}
	return aliases, nil
}

// Restore 恢复一个已删除别名。配额允许时恢复为启用，否则恢复为停用。
// 在用列表中已有相同地址时返回冲突。
func (s *AliasService) Restore(ctx context.Context, userID, id string) (*Result, error) {
	var active bool
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		deleted, err := tx.GetDeletedAlias(ctx, userID, id)
		if err != nil {
			return notFound(err, "Failed to restore alias. Not found or no permission.")
		}

		if _, err := tx.FindAliasByAddress(ctx, userID, deleted.Address); err == nil {
			return domain.Conflict(msgAliasLiveConflict)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		count, err := tx.CountActiveAliases(ctx, userID)
		if err != nil {
			return err
		}
		active = count < s.limits.ActiveAliases

		if err := tx.CreateAlias(ctx, deleted.Restore(active)); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return domain.Conflict(msgAliasLiveConflict)
			}
			return err
		}
		n, err := tx.PurgeDeletedAliases(ctx, userID, []string{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("Failed to restore alias. Please try again.")
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", "Failed to restore alias due to a database error.", err)
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionRestored, 1)
	s.publish(userID, domain.EventAliasesChanged)

	if active {
		return &Result{Message: "Alias has been restored and set to active.", Affected: 1}, nil
	}
	s.metrics.RecordQuotaRejection(resourceActiveAliases)
	return &Result{
		Message:  "Alias has been restored as inactive because you have reached your active alias limit.",
		Affected: 1,
		Partial:  true,
	}, nil
}

// PermanentlyDelete 永久删除一个已删除别名。
func (s *AliasService) PermanentlyDelete(ctx context.Context, userID, id string) error {
	n, err := s.store.PurgeDeletedAliases(ctx, userID, []string{id})
	if err != nil {
		return s.fail("alias", "Failed to permanently delete alias due to a database error.", err)
	}
	if n == 0 {
		return domain.NotFound("Failed to permanently delete alias. Not found or no permission.")
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionPurged, 1)
	s.publish(userID, domain.EventAliasesChanged)
	return nil
}
