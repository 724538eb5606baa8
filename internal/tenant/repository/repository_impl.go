package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/tenant/domain"
	"github.com/smallbiznis/stockwise/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db      *gorm.DB
	tenants repository.Store[domain.Tenant]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{
		db:      db,
		tenants: repository.New[domain.Tenant](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{
		db:      tx,
		tenants: r.tenants.WithTx(tx),
	}
}

func (r *repo) CreateTenant(ctx context.Context, tenant *domain.Tenant) error {
	return r.tenants.Create(ctx, tenant)
}

func (r *repo) GetTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	if id == 0 {
		return nil, nil
	}
	return r.tenants.Get(ctx, &domain.Tenant{ID: id})
}

func (r *repo) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.tenants.Exists(ctx, &domain.Tenant{Slug: slug})
}

func (r *repo) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	return r.tenants.List(ctx, nil, repository.OrderBy("created_at ASC, id ASC"))
}

func (r *repo) ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TenantListItem, error) {
	var items []domain.TenantListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.id, t.name, t.slug, m.role, t.created_at
		 FROM tenants t
		 JOIN tenant_members m ON m.tenant_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at ASC, t.id ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UserExists(ctx context.Context, userID snowflake.ID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM users WHERE id = ?`,
		userID,
	).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) GetMember(ctx context.Context, tenantID, userID snowflake.ID) (*domain.TenantMember, error) {
	var members []domain.TenantMember
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, user_id, role, created_at, updated_at
		 FROM tenant_members
		 WHERE tenant_id = ? AND user_id = ?
		 LIMIT 1`,
		tenantID,
		userID,
	).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return &members[0], nil
}

func (r *repo) InsertMember(ctx context.Context, member domain.TenantMember) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tenant_members (id, tenant_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.TenantID,
		member.UserID,
		member.Role,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) UpdateMemberRole(ctx context.Context, tenantID, userID snowflake.ID, role string, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tenant_members SET role = ?, updated_at = ?
		 WHERE tenant_id = ? AND user_id = ?`,
		role,
		updatedAt,
		tenantID,
		userID,
	).Error
}

func (r *repo) DeleteMember(ctx context.Context, tenantID, userID snowflake.ID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM tenant_members WHERE tenant_id = ? AND user_id = ?`,
		tenantID,
		userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListMembers(ctx context.Context, tenantID snowflake.ID) ([]domain.MemberListItem, error) {
	var items []domain.MemberListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.user_id, u.email, m.role, m.created_at, m.updated_at
		 FROM tenant_members m
		 LEFT JOIN users u ON u.id = m.user_id
		 WHERE m.tenant_id = ?
		 ORDER BY m.created_at ASC, m.user_id ASC`,
		tenantID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
