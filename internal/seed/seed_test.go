package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/auth/password"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *snowflake.Node, clock.Clock) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &tenantdomain.Tenant{}, &tenantdomain.TenantMember{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return conn, node, clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	conn, node, clk := setup(t)
	cfg := config.BootstrapConfig{Enabled: true, AdminEmail: "Admin@Example.com", AdminPassword: "s3cret-pass", TenantName: "Main Branch"}

	require.NoError(t, Bootstrap(context.Background(), conn, node, clk, cfg, zaptest.NewLogger(t)))
	require.NoError(t, Bootstrap(context.Background(), conn, node, clk, cfg, zaptest.NewLogger(t)))

	var users []authdomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@example.com", users[0].Email)
	assert.Equal(t, authorization.RoleAdmin, users[0].Role)
	assert.True(t, password.Verify("s3cret-pass", users[0].PasswordHash))

	var tenants []tenantdomain.Tenant
	require.NoError(t, conn.Find(&tenants).Error)
	require.Len(t, tenants, 1)
	assert.Equal(t, "main-branch", tenants[0].Slug)

	var members int64
	require.NoError(t, conn.Model(&tenantdomain.TenantMember{}).Count(&members).Error)
	assert.Equal(t, int64(1), members)
}

func TestBootstrapWithoutAdminSeedsTenantOnly(t *testing.T) {
	conn, node, clk := setup(t)
	require.NoError(t, Bootstrap(context.Background(), conn, node, clk, config.BootstrapConfig{Enabled: true}, zaptest.NewLogger(t)))

	var users int64
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&users).Error)
	assert.Zero(t, users)

	var tenant tenantdomain.Tenant
	require.NoError(t, conn.First(&tenant).Error)
	assert.Equal(t, "Main Branch", tenant.Name)
}

func TestBootstrapDisabled(t *testing.T) {
	conn, node, clk := setup(t)
	require.NoError(t, Bootstrap(context.Background(), conn, node, clk, config.BootstrapConfig{}, zaptest.NewLogger(t)))

	var tenants int64
	require.NoError(t, conn.Model(&tenantdomain.Tenant{}).Count(&tenants).Error)
	assert.Zero(t, tenants)
}
