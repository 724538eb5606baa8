package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeAudit struct {
	actions []string
	meta    []map[string]any
}

func (f *fakeAudit) Record(ctx context.Context, e auditdomain.Entry) error {
	f.actions = append(f.actions, e.Action)
	f.meta = append(f.meta, e.Metadata)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

const (
	tenantA snowflake.ID = 1001
	tenantB snowflake.ID = 1002
	staffID snowflake.ID = 2001
	mgrID   snowflake.ID = 2002
	adminID snowflake.ID = 2003
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`CREATE TABLE tenants (id INTEGER PRIMARY KEY, name TEXT, slug TEXT)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE tenant_members (id INTEGER PRIMARY KEY, tenant_id INTEGER, user_id INTEGER, role TEXT)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO tenants (id, name, slug) VALUES (?, 'A', 'a'), (?, 'B', 'b')`, tenantA, tenantB).Error)
	require.NoError(t, conn.Exec(`INSERT INTO tenant_members (id, tenant_id, user_id, role) VALUES (1, ?, ?, 'staff'), (2, ?, ?, 'MANAGER')`,
		tenantA, staffID, tenantA, mgrID).Error)
	return conn
}

func newTestService(t *testing.T) (*ServiceImpl, *fakeAudit) {
	t.Helper()
	conn := setupDB(t)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	audit := &fakeAudit{}
	svc := NewService(Params{
		DB:       conn,
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
		AuditSvc: audit,
	}).(*ServiceImpl)
	return svc, audit
}

func TestResolve(t *testing.T) {
	svc, audit := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		principal Principal
		tenant    string
		wantRole  string
		wantErr   error
	}{
		{name: "member", principal: Principal{UserID: staffID, GlobalRole: RoleStaff}, tenant: tenantA.String(), wantRole: RoleStaff},
		{name: "member role normalized", principal: Principal{UserID: mgrID, GlobalRole: RoleStaff}, tenant: tenantA.String(), wantRole: RoleManager},
		{name: "global admin without membership", principal: Principal{UserID: adminID, GlobalRole: RoleAdmin}, tenant: tenantB.String(), wantRole: RoleAdmin},
		{name: "global manager is not admin", principal: Principal{UserID: mgrID, GlobalRole: RoleManager}, tenant: tenantB.String(), wantErr: ErrForbidden},
		{name: "not member", principal: Principal{UserID: staffID, GlobalRole: RoleStaff}, tenant: tenantB.String(), wantErr: ErrForbidden},
		{name: "malformed tenant", principal: Principal{UserID: staffID}, tenant: "abc", wantErr: ErrInvalidTenant},
		{name: "missing tenant header", principal: Principal{UserID: staffID}, tenant: " ", wantErr: ErrInvalidTenant},
		{name: "unknown tenant", principal: Principal{UserID: adminID, GlobalRole: RoleAdmin}, tenant: "999999", wantErr: ErrTenantNotFound},
		{name: "anonymous", principal: Principal{}, tenant: tenantA.String(), wantErr: ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			access, err := svc.Resolve(ctx, tc.principal, tc.tenant)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantRole, access.Role)
			assert.Equal(t, tc.principal.UserID, access.UserID)
		})
	}

	assert.Contains(t, audit.actions, "authorization.denied")
}

func TestResolveGlobalAdminCreatesNoMembership(t *testing.T) {
	svc, _ := newTestService(t)

	access, err := svc.Resolve(context.Background(), Principal{UserID: adminID, GlobalRole: RoleAdmin}, tenantB.String())
	require.NoError(t, err)
	assert.True(t, access.ViaGlobalRole)

	var count int64
	require.NoError(t, svc.db.Raw(`SELECT COUNT(1) FROM tenant_members WHERE user_id = ?`, adminID).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestAuthorizeRoleMatrix(t *testing.T) {
	svc, audit := newTestService(t)
	ctx := context.Background()

	staff := Access{TenantID: tenantA, UserID: staffID, Role: RoleStaff}
	manager := Access{TenantID: tenantA, UserID: mgrID, Role: RoleManager}
	admin := Access{TenantID: tenantA, UserID: adminID, Role: RoleAdmin, ViaGlobalRole: true}

	assert.NoError(t, svc.Authorize(ctx, staff, ObjectInventory, ActionInventoryAdjust))
	assert.NoError(t, svc.Authorize(ctx, staff, ObjectOrder, ActionOrderCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, staff, ObjectOrder, ActionOrderTransition), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, staff, ObjectReorder, ActionReorderSweep), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, manager, ObjectOrder, ActionOrderTransition))
	assert.NoError(t, svc.Authorize(ctx, manager, ObjectReorder, ActionReorderSweep))
	assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectMember, ActionMemberManage), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, admin, ObjectMember, ActionMemberManage))
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectAuditLog, ActionAuditLogView))

	assert.Equal(t, 3, countOf(audit.actions, "authorization.denied"))
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access := Access{TenantID: tenantA, UserID: staffID, Role: RoleManager}
	require.NoError(t, svc.Authorize(ctx, access, ObjectOrder, ActionOrderTransition))

	access.Role = RoleStaff
	assert.ErrorIs(t, svc.Authorize(ctx, access, ObjectOrder, ActionOrderTransition), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, Access{TenantID: tenantA}, ObjectOrder, ActionOrderView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, Access{UserID: staffID}, ObjectOrder, ActionOrderView), ErrInvalidTenant)
	assert.ErrorIs(t, svc.Authorize(ctx, Access{TenantID: tenantA, UserID: staffID, Role: RoleStaff}, "", ActionOrderView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, Access{TenantID: tenantA, UserID: staffID, Role: "owner"}, ObjectOrder, ActionOrderView), ErrForbidden)
}

func countOf(values []string, target string) int {
	n := 0
	for _, v := range values {
		if v == target {
			n++
		}
	}
	return n
}
