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

const msgDomainNotFound = "Failed to update domain. Domain not found or you do not have permission."

// DomainService 自定义域名服务
type DomainService struct {
	base
	limits Limits
}

// NewDomainService 创建自定义域名服务
func NewDomainService(store storage.Store, limits Limits, log *zap.Logger, metrics *monitoring.Metrics) *DomainService {
	return &DomainService{
		base:   newBase(store, log, metrics),
		limits: limits,
	}
}

// DomainInput 添加或修改域名的输入
type DomainInput struct {
	DomainName  string
	Description string
}

// List 列出用户的全部域名
func (s *DomainService) List(ctx context.Context, userID string) ([]*domain.CustomDomain, error) {
	domains, err := s.store.ListCustomDomains(ctx, userID, false)
	if err != nil {
		return nil, s.fail("domain", "A database error occurred while fetching domains.", err)
	}
	return domains, nil
}

// Create 添加自定义域名
func (s *DomainService) Create(ctx context.Context, userID string, input DomainInput) (*domain.CustomDomain, error) {
	name, err := normalizeDomainName(input.DomainName)
	if err != nil {
		return nil, err
	}

	d := &domain.CustomDomain{
		ID:          uuid.NewString(),
		UserID:      userID,
		DomainName:  name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		count, err := tx.CountCustomDomains(ctx, userID)
		if err != nil {
			return err
		}
		if count >= s.limits.Domains {
			s.metrics.RecordQuotaRejection(resourceDomains)
			return s.limits.domainLimitError()
		}

		if _, err := tx.FindCustomDomainByName(ctx, userID, name); err == nil {
			return domain.Conflict("You have already added this domain.")
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := tx.CreateCustomDomain(ctx, d); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return domain.Conflict("You have already added this domain.")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("domain", "An unexpected error occurred.", err)
	}

	s.publish(userID, domain.EventDomainsChanged)
	s.log.Info("Custom domain added", zap.String("user_id", userID), zap.String("domain", name))
	return d, nil
}

// Update 修改域名名称与描述
func (s *DomainService) Update(ctx context.Context, userID, id string, input DomainInput) (*domain.CustomDomain, error) {
	name, err := normalizeDomainName(input.DomainName)
	if err != nil {
		return nil, err
	}

	var updated *domain.CustomDomain
	err = s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		d, err := tx.GetCustomDomain(ctx, userID, id)
		if err != nil {
			return notFound(err, msgDomainNotFound)
		}

		if other, err := tx.FindCustomDomainByName(ctx, userID, name); err == nil && other.ID != id {
			return domain.Conflict("This domain name is already in use by another of your domains.")
		} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		d.DomainName = name
		d.Description = strings.TrimSpace(input.Description)
		if err := tx.UpdateCustomDomain(ctx, d); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return domain.Conflict("This domain name is already in use by another of your domains.")
			}
			return notFound(err, msgDomainNotFound)
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, s.fail("domain", "An unexpected error occurred.", err)
	}

	s.publish(userID, domain.EventDomainsChanged)
	return updated, nil
}

// SetActive 启用或停用域名
func (s *DomainService) SetActive(ctx context.Context, userID, id string, active bool) error {
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Store) error {
		d, err := tx.GetCustomDomain(ctx, userID, id)
		if err != nil {
			return notFound(err, "Failed to update domain status. Domain not found or you do not have permission.")
		}
		if d.IsActive == active {
			return nil
		}
		d.IsActive = active
		return notFound(tx.UpdateCustomDomain(ctx, d), "Failed to update domain status. Domain not found or you do not have permission.")
	})
	if err != nil {
		return s.fail("domain", "Failed to update domain status.", err)
	}

	s.publish(userID, domain.EventDomainsChanged)
	return nil
}

// Delete 永久删除域名
func (s *DomainService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCustomDomain(ctx, userID, id); err != nil {
		return s.fail("domain", "Failed to delete domain.",
			notFound(err, "Failed to delete domain. Domain not found or you do not have permission."))
	}

	s.publish(userID, domain.EventDomainsChanged)
	s.log.Info("Custom domain deleted", zap.String("user_id", userID), zap.String("domain_id", id))
	return nil
}

// normalizeDomainName 去除空白、转小写并校验
func normalizeDomainName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if len(name) < domain.MinDomainNameLength {
		return "", domain.Validation("Domain name must be at least 3 characters.")
	}
	if !domain.ValidateDomain(name) {
		return "", domain.Validation("Please enter a valid domain name.")
	}
	return name, nil
}
