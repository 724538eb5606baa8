package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TenantListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

type MemberListItem struct {
	UserID    snowflake.ID
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]TenantListItem, error)
	UserExists(ctx context.Context, userID snowflake.ID) (bool, error)
	GetMember(ctx context.Context, tenantID, userID snowflake.ID) (*TenantMember, error)
	InsertMember(ctx context.Context, member TenantMember) error
	UpdateMemberRole(ctx context.Context, tenantID, userID snowflake.ID, role string, updatedAt time.Time) error
	DeleteMember(ctx context.Context, tenantID, userID snowflake.ID) (int64, error)
	ListMembers(ctx context.Context, tenantID snowflake.ID) ([]MemberListItem, error)
}
