package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

// 批量操作的 ids 为空（nil 或空切片）时作用于对应状态的全部别名。
// 每一行单独检查前置条件，不满足的行跳过，不会导致整批失败。

// DeleteInactive 将停用别名批量移入已删除列表。
func (s *AliasService) DeleteInactive(ctx context.Context, userID string, ids []string) (*Result, error) {
	return s.moveToDeleted(ctx, userID, ids, false)
}

// DeleteActive 将启用别名批量移入已删除列表。
func (s *AliasService) DeleteActive(ctx context.Context, userID string, ids []string) (*Result, error) {
	return s.moveToDeleted(ctx, userID, ids, true)
}

func (s *AliasService) moveToDeleted(ctx context.Context, userID string, ids []string, active bool) (*Result, error) {
	state := "inactive"
	if active {
		state = "active"
	}

	var moved int
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		aliases, err := tx.ListAliases(ctx, userID, storage.AliasFilter{Active: &active, IDs: ids})
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			return nil
		}

		now := s.now().UTC()
		deleted := make([]*domain.DeletedAlias, 0, len(aliases))
		targets := make([]string, 0, len(aliases))
		for _, a := range aliases {
			deleted = append(deleted, a.ToDeleted(now))
			targets = append(targets, a.ID)
		}

		if err := tx.CreateDeletedAliases(ctx, deleted); err != nil {
			return err
		}
		n, err := tx.DeleteAliases(ctx, userID, targets)
		if err != nil {
			return err
		}
		if int(n) != len(targets) {
			return fmt.Errorf("moved %d of %d %s aliases", n, len(targets), state)
		}
		moved = len(targets)
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", fmt.Sprintf("Failed to delete %s aliases due to a database error.", state), err)
	}

	if moved == 0 {
		return &Result{Message: fmt.Sprintf("No matching %s aliases to delete.", state)}, nil
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionDeleted, moved)
	s.publish(userID, domain.EventAliasesChanged)
	s.log.Info("Aliases moved to deleted history",
		zap.String("user_id", userID), zap.String("state", state), zap.Int("count", moved))
	return &Result{
		Message:  fmt.Sprintf("Selected %s aliases have been moved to the deleted history.", state),
		Affected: moved,
	}, nil
}

// ActivateInactive 批量启用停用别名，最多启用剩余名额个，其余保持停用。
func (s *AliasService) ActivateInactive(ctx context.Context, userID string, ids []string) (*Result, error) {
	var (
		activated  int
		candidates int
		noSlots    bool
	)
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		count, err := tx.CountActiveAliases(ctx, userID)
		if err != nil {
			return err
		}
		slots := availableSlots(s.limits.ActiveAliases, count)
		if slots == 0 {
			noSlots = true
			return nil
		}

		inactive := false
		aliases, err := tx.ListAliases(ctx, userID, storage.AliasFilter{Active: &inactive, IDs: ids})
		if err != nil {
			return err
		}
		candidates = len(aliases)
		if len(aliases) > slots {
			aliases = aliases[:slots]
		}
		if len(aliases) == 0 {
			return nil
		}

		targets := make([]string, 0, len(aliases))
		for _, a := range aliases {
			targets = append(targets, a.ID)
		}
		n, err := tx.SetAliasesActive(ctx, userID, targets, true)
		if err != nil {
			return err
		}
		activated = int(n)
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", "Failed to activate aliases due to a database error.", err)
	}

	if noSlots {
		s.metrics.RecordQuotaRejection(resourceActiveAliases)
		return &Result{Message: "No available slots to activate aliases. Please deactivate some first."}, nil
	}
	if activated == 0 {
		return &Result{Message: "No inactive aliases to activate."}, nil
	}

	s.metrics.RecordAliasTransition(monitoring.TransitionActivated, activated)
	s.publish(userID, domain.EventAliasesChanged)

	result := &Result{
		Message:  fmt.Sprintf("Successfully activated %d alias(es).", activated),
		Affected: activated,
	}
	if remaining := candidates - activated; remaining > 0 {
		s.metrics.RecordQuotaRejection(resourceActiveAliases)
		result.Partial = true
		result.Message += fmt.Sprintf(" %d alias(es) remain inactive because you have reached your active alias limit.", remaining)
	}
	return result, nil
}

// DeactivateActive 批量停用启用中的别名。
func (s *AliasService) DeactivateActive(ctx context.Context, userID string, ids []string) (*Result, error) {
	var deactivated int
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		active := true
		aliases, err := tx.ListAliases(ctx, userID, storage.AliasFilter{Active: &active, IDs: ids})
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			return nil
		}
		targets := make([]string, 0, len(aliases))
		for _, a := range aliases {
			targets = append(targets, a.ID)
		}
		n, err := tx.SetAliasesActive(ctx, userID, targets, false)
		if err != nil {
			return err
		}
		deactivated = int(n)
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", "Failed to deactivate aliases due to a database error.", err)
	}

	if deactivated > 0 {
		s.metrics.RecordAliasTransition(monitoring.TransitionDeactivated, deactivated)
		s.publish(userID, domain.EventAliasesChanged)
	}
	return &Result{
		Message:  fmt.Sprintf("Successfully deactivated %d alias(es).", deactivated),
		Affected: deactivated,
	}, nil
}

// RestoreDeleted 批量恢复已删除别名为启用状态，最多恢复剩余名额个，
// 其余保持已删除。在用列表中已有相同地址的行被跳过。
func (s *AliasService) RestoreDeleted(ctx context.Context, userID string, ids []string) (*Result, error) {
	var (
		restored   int
		candidates int
		conflicts  int
		noSlots    bool
	)
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		deleted, err := tx.ListDeletedAliases(ctx, userID, ids)
		if err != nil {
			return err
		}
		candidates = len(deleted)
		if candidates == 0 {
			return nil
		}

		count, err := tx.CountActiveAliases(ctx, userID)
		if err != nil {
			return err
		}
		slots := availableSlots(s.limits.ActiveAliases, count)
		if slots == 0 {
			noSlots = true
			return nil
		}

		done := make([]string, 0, slots)
		for _, d := range deleted {
			if len(done) == slots {
				break
			}
			if _, err := tx.FindAliasByAddress(ctx, userID, d.Address); err == nil {
				conflicts++
				continue
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err := tx.CreateAlias(ctx, d.Restore(true)); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					conflicts++
					continue
				}
				return err
			}
			done = append(done, d.ID)
		}

		if len(done) == 0 {
			return nil
		}
		n, err := tx.PurgeDeletedAliases(ctx, userID, done)
		if err != nil {
			return err
		}
		if int(n) != len(done) {
			return fmt.Errorf("purged %d of %d restored aliases", n, len(done))
		}
		restored = len(done)
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", "Failed to restore aliases due to a database error.", err)
	}

	if candidates == 0 {
		return &Result{Message: "No aliases to restore."}, nil
	}
	if noSlots {
		s.metrics.RecordQuotaRejection(resourceActiveAliases)
		return &Result{Message: "No available slots to restore aliases. Please deactivate some first."}, nil
	}

	if restored > 0 {
		s.metrics.RecordAliasTransition(monitoring.TransitionRestored, restored)
		s.publish(userID, domain.EventAliasesChanged)
	}

	result := &Result{
		Message:  fmt.Sprintf("Successfully restored %d alias(es).", restored),
		Affected: restored,
	}
	if remaining := candidates - restored - conflicts; remaining > 0 {
		s.metrics.RecordQuotaRejection(resourceActiveAliases)
		result.Partial = true
		result.Message += fmt.Sprintf(" %d alias(es) remain deleted because you have reached your active alias limit.", remaining)
	}
	if conflicts > 0 {
		result.Partial = true
		result.Message += fmt.Sprintf(" %d alias(es) were skipped because the address already exists in your active list.", conflicts)
	}
	return result, nil
}

// PermanentlyDeleteDeleted 批量永久删除已删除别名。
func (s *AliasService) PermanentlyDeleteDeleted(ctx context.Context, userID string, ids []string) (*Result, error) {
	var purged int
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		deleted, err := tx.ListDeletedAliases(ctx, userID, ids)
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		targets := make([]string, 0, len(deleted))
		for _, d := range deleted {
			targets = append(targets, d.ID)
		}
		n, err := tx.PurgeDeletedAliases(ctx, userID, targets)
		if err != nil {
			return err
		}
		purged = int(n)
		return nil
	})
	if err != nil {
		return nil, s.fail("alias", "Failed to delete aliases due to a database error.", err)
	}

	if purged > 0 {
		s.metrics.RecordAliasTransition(monitoring.TransitionPurged, purged)
		s.publish(userID, domain.EventAliasesChanged)
	}
	return &Result{Message: "Selected aliases have been permanently removed.", Affected: purged}, nil
}
