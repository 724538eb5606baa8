package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/auth/password"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTenantName = "Main Branch"

// Bootstrap creates the first admin user and the default tenant on an empty
// database. Every step is skipped when its row already exists.
func Bootstrap(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock, cfg config.BootstrapConfig, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.Enabled {
		return nil
	}
	log = log.Named("seed")

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := ensureDefaultTenant(ctx, tx, node, clk, cfg.TenantName)
		if err != nil {
			return err
		}

		email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
		if email == "" || cfg.AdminPassword == "" {
			log.Info("bootstrap admin not configured, skipping user seed")
			return nil
		}

		user, err := ensureAdmin(ctx, tx, node, clk, email, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if err := ensureMembership(ctx, tx, node, clk, tenant.ID, user.ID); err != nil {
			return err
		}
		log.Info("bootstrap complete", zap.String("tenant_id", tenant.ID.String()), zap.String("admin_id", user.ID.String()))
		return nil
	})
}

func ensureDefaultTenant(ctx context.Context, tx *gorm.DB, node *snowflake.Node, clk clock.Clock, name string) (tenantdomain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTenantName
	}
	tenantSlug := slug.Make(name)

	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("slug = ?", tenantSlug).First(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant, err
	}

	tenant = tenantdomain.Tenant{
		ID:        node.Generate(),
		Name:      name,
		Slug:      tenantSlug,
		CreatedAt: clk.Now(),
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return tenant, err
	}
	return tenant, nil
}

func ensureAdmin(ctx context.Context, tx *gorm.DB, node *snowflake.Node, clk clock.Clock, email, plain string) (authdomain.User, error) {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return user, err
	}
	now := clk.Now()
	user = authdomain.User{
		ID:           node.Generate(),
		Email:        email,
		PasswordHash: hashed,
		Role:         authorization.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureMembership(ctx context.Context, tx *gorm.DB, node *snowflake.Node, clk clock.Clock, tenantID, userID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&tenantdomain.TenantMember{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := clk.Now()
	return tx.WithContext(ctx).Create(&tenantdomain.TenantMember{
		ID:        node.Generate(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      authorization.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}
