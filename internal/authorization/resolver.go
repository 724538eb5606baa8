package authorization

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Resolver computes the effective role of a principal inside a tenant. It only reads.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

func (r *Resolver) Resolve(ctx context.Context, principal Principal, requestedTenantID string) (Access, error) {
	if principal.UserID == 0 {
		return Access{}, ErrUnauthorized
	}

	raw := strings.TrimSpace(requestedTenantID)
	if raw == "" {
		return Access{}, ErrInvalidTenant
	}
	tenantID, err := snowflake.ParseString(raw)
	if err != nil || tenantID <= 0 {
		return Access{}, ErrInvalidTenant
	}

	exists, err := r.tenantExists(ctx, tenantID)
	if err != nil {
		return Access{}, err
	}
	if !exists {
		return Access{}, ErrTenantNotFound
	}

	// Global admins act as tenant admins without a membership row.
	if NormalizeRole(principal.GlobalRole) == RoleAdmin {
		return Access{
			TenantID:      tenantID,
			UserID:        principal.UserID,
			Role:          RoleAdmin,
			ViaGlobalRole: true,
		}, nil
	}

	role, err := r.membershipRole(ctx, tenantID, principal.UserID)
	if err != nil {
		return Access{}, err
	}
	if role == "" {
		return Access{}, ErrForbidden
	}

	return Access{
		TenantID: tenantID,
		UserID:   principal.UserID,
		Role:     role,
	}, nil
}

func (r *Resolver) tenantExists(ctx context.Context, tenantID snowflake.ID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM tenants WHERE id = ?`,
		tenantID,
	).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Resolver) membershipRole(ctx context.Context, tenantID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := r.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM tenant_members
		 WHERE tenant_id = ? AND user_id = ?
		 LIMIT 1`,
		tenantID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	return NormalizeRole(row.Role), nil
}
