package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockwise/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	*Resolver

	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		Resolver: NewResolver(p.DB),
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Resolve wraps the resolver so membership denials reach the audit trail.
func (s *ServiceImpl) Resolve(ctx context.Context, principal Principal, requestedTenantID string) (Access, error) {
	access, err := s.Resolver.Resolve(ctx, principal, requestedTenantID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			denied := Access{UserID: principal.UserID}
			if id, parseErr := snowflake.ParseString(strings.TrimSpace(requestedTenantID)); parseErr == nil {
				denied.TenantID = id
			}
			s.auditDenied(ctx, denied, ObjectMember, "tenant.access", "not_member")
		}
		return Access{}, err
	}
	return access, nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, access Access, object string, action string) error {
	if access.UserID == 0 {
		return ErrInvalidActor
	}
	if access.TenantID == 0 {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role := NormalizeRole(access.Role)
	if role == "" {
		s.auditDenied(ctx, access, object, action, "unknown_role")
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", access.UserID.String())
	roleName := fmt.Sprintf("role:%s", role)
	domain := fmt.Sprintf("tenant:%s", access.TenantID.String())
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, access, object, action, "role_not_permitted")
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject and tenant.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
				return err
			}
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, access Access, object string, action string, reason string) {
	s.metrics.RecordAccessDenied(ctx, object, reason)
	obslogger.WithContext(ctx, s.log).Info("access denied",
		zap.String("tenant_id", access.TenantID.String()),
		zap.String("user_id", access.UserID.String()),
		zap.String("object", object),
		zap.String("action", action),
		zap.String("reason", reason),
	)
	if s.auditSvc == nil || access.TenantID == 0 {
		return
	}
	tenantID := access.TenantID
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		TenantID:   &tenantID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    access.UserID.String(),
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   access.Role,
			"reason": reason,
		},
	})
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to write access denial audit log", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	staff := [][]string{
		{ObjectInventory, ActionInventoryView},
		{ObjectInventory, ActionInventoryCreate},
		{ObjectInventory, ActionInventoryUpdate},
		{ObjectInventory, ActionInventoryAdjust},
		{ObjectOrder, ActionOrderView},
		{ObjectOrder, ActionOrderCreate},
		{ObjectReorder, ActionReorderView},
		{ObjectReorder, ActionReorderCreate},
		{ObjectMember, ActionMemberView},
	}
	manager := append(append([][]string{}, staff...),
		[]string{ObjectInventory, ActionInventoryDelete},
		[]string{ObjectOrder, ActionOrderTransition},
		[]string{ObjectReorder, ActionReorderUpdate},
		[]string{ObjectReorder, ActionReorderSweep},
	)
	admin := append(append([][]string{}, manager...),
		[]string{ObjectMember, ActionMemberManage},
		[]string{ObjectAuditLog, ActionAuditLogView},
	)

	grants := map[string][][]string{
		"role:" + RoleStaff:   staff,
		"role:" + RoleManager: manager,
		"role:" + RoleAdmin:   admin,
	}
	for role, perms := range grants {
		for _, perm := range perms {
			has, err := enforcer.HasPolicy(role, perm[0], perm[1])
			if err != nil {
				return err
			}
			if has {
				continue
			}
			if _, err := enforcer.AddPolicy(role, perm[0], perm[1]); err != nil {
				return err
			}
		}
	}
	return nil
}
