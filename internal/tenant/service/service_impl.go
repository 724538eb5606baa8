package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	"github.com/smallbiznis/stockwise/internal/tenant/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("tenant.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *service) Create(ctx context.Context, principal authorization.Principal, req domain.CreateTenantRequest) (*domain.TenantResponse, error) {
	if authorization.NormalizeRole(principal.GlobalRole) != authorization.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	tenant := domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tenantSlug, err := s.uniqueSlug(ctx, repo, name)
		if err != nil {
			return err
		}
		tenant.Slug = tenantSlug
		return repo.CreateTenant(ctx, &tenant)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, tenant.ID, principal.UserID, "tenant.created", "tenant", tenant.ID.String(), map[string]any{
		"name": tenant.Name,
		"slug": tenant.Slug,
	})
	s.log.Info("tenant created", zap.String("tenant_id", tenant.ID.String()), zap.String("slug", tenant.Slug))

	return toTenantResponse(tenant), nil
}

// uniqueSlug appends -2, -3, ... to the derived slug until it is free.
func (s *service) uniqueSlug(ctx context.Context, repo domain.Repository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tenant"
	}
	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts+1; attempt++ {
		taken, err := repo.SlugTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", domain.ErrSlugExhausted
}

func (s *service) List(ctx context.Context, principal authorization.Principal) ([]domain.TenantListResponseItem, error) {
	if principal.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	if authorization.NormalizeRole(principal.GlobalRole) == authorization.RoleAdmin {
		tenants, err := s.repo.ListTenants(ctx)
		if err != nil {
			return nil, err
		}
		resp := make([]domain.TenantListResponseItem, 0, len(tenants))
		for _, tenant := range tenants {
			resp = append(resp, domain.TenantListResponseItem{
				ID:        tenant.ID.String(),
				Name:      tenant.Name,
				Slug:      tenant.Slug,
				Role:      authorization.RoleAdmin,
				CreatedAt: tenant.CreatedAt,
			})
		}
		return resp, nil
	}

	items, err := s.repo.ListTenantsByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.TenantListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.TenantListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      authorization.NormalizeRole(item.Role),
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) ListMembers(ctx context.Context, access authorization.Access) ([]domain.MemberResponse, error) {
	items, err := s.repo.ListMembers(ctx, access.TenantID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.MemberResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.MemberResponse{
			TenantID:  access.TenantID.String(),
			UserID:    item.UserID.String(),
			Email:     item.Email,
			Role:      authorization.NormalizeRole(item.Role),
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return resp, nil
}

func (s *service) UpsertMember(ctx context.Context, access authorization.Access, userID string, role string) (*domain.MemberResponse, error) {
	targetID, err := parseID(userID)
	if err != nil {
		return nil, domain.ErrInvalidUser
	}
	normalized := authorization.NormalizeRole(role)
	if normalized == "" {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	var result domain.TenantMember
	previousRole := ""

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.UserExists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUserNotFound
		}

		existing, err := repo.GetMember(ctx, access.TenantID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			previousRole = existing.Role
			if err := repo.UpdateMemberRole(ctx, access.TenantID, targetID, normalized, now); err != nil {
				return err
			}
			result = *existing
			result.Role = normalized
			result.UpdatedAt = now
			return nil
		}

		result = domain.TenantMember{
			ID:        s.genID.Generate(),
			TenantID:  access.TenantID,
			UserID:    targetID,
			Role:      normalized,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.InsertMember(ctx, result); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("concurrent membership write: %w", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, access.TenantID, access.UserID, "member.upserted", "user", targetID.String(), map[string]any{
		"role":          normalized,
		"previous_role": previousRole,
	})

	return &domain.MemberResponse{
		TenantID:  access.TenantID.String(),
		UserID:    targetID.String(),
		Role:      normalized,
		CreatedAt: result.CreatedAt,
		UpdatedAt: result.UpdatedAt,
	}, nil
}

func (s *service) RemoveMember(ctx context.Context, access authorization.Access, userID string) error {
	targetID, err := parseID(userID)
	if err != nil {
		return domain.ErrInvalidUser
	}

	affected, err := s.repo.DeleteMember(ctx, access.TenantID, targetID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMemberNotFound
	}

	s.audit(ctx, access.TenantID, access.UserID, "member.removed", "user", targetID.String(), nil)
	return nil
}

func (s *service) audit(ctx context.Context, tenantID snowflake.ID, actorID snowflake.ID, action string, targetType string, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	entry := auditdomain.Entry{
		TenantID:   &tenantID,
		ActorType:  auditdomain.ActorTypeUser,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	}
	if actorID != 0 {
		entry.ActorID = actorID.String()
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to write tenant audit log", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func toTenantResponse(tenant domain.Tenant) *domain.TenantResponse {
	return &domain.TenantResponse{
		ID:        tenant.ID.String(),
		Name:      tenant.Name,
		Slug:      tenant.Slug,
		CreatedAt: tenant.CreatedAt,
	}
}
