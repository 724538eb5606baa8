package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/internal/audit/repository"
	"github.com/smallbiznis/stockwise/internal/clock"
	obscontext "github.com/smallbiznis/stockwise/internal/observability/context"
	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
	"github.com/smallbiznis/stockwise/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	return NewService(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}), fake
}

func TestRecordFillsFromContext(t *testing.T) {
	svc, _ := newService(t)
	ctx := tenantctx.WithTenantID(context.Background(), 100)
	ctx = obscontext.WithActor(ctx, "user", "7")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = obscontext.WithClient(ctx, "10.0.0.1", "curl/8")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		Action:     "inventory_item.deleted",
		TargetType: "inventory_item",
		TargetID:   " 55 ",
		Metadata:   map[string]any{"email": "clerk@example.com", "sku": "SKU-1"},
	}))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	got := resp.AuditLogs[0]
	require.NotNil(t, got.TenantID)
	assert.Equal(t, snowflake.ID(100), *got.TenantID)
	assert.Equal(t, "user", got.ActorType)
	require.NotNil(t, got.ActorID)
	assert.Equal(t, "7", *got.ActorID)
	require.NotNil(t, got.TargetID)
	assert.Equal(t, "55", *got.TargetID)
	require.NotNil(t, got.IPAddress)
	assert.Equal(t, "10.0.0.1", *got.IPAddress)
	assert.Equal(t, "req-1", got.Metadata["request_id"])
	assert.Equal(t, "SKU-1", got.Metadata["sku"])
	assert.NotEqual(t, "clerk@example.com", got.Metadata["email"])
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc, _ := newService(t)
	ctx := tenantctx.WithTenantID(context.Background(), 100)

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "reorder_request.created"}))
	assert.ErrorIs(t, svc.Record(ctx, auditdomain.Entry{Action: "  "}), auditdomain.ErrInvalidAction)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "system", resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, fake := newService(t)
	ctx := tenantctx.WithTenantID(context.Background(), 100)
	for _, action := range []string{"order.created", "order.transitioned", "order.transitioned"} {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: action, TargetType: "order"}))
		fake.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationOf("", 2)})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, "order.transitioned", first.AuditLogs[0].Action)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationOf(first.PageInfo.NextPageToken, 2)})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.PageInfo.HasMore)
	assert.Equal(t, "order.created", second.AuditLogs[0].Action)

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationOf("garbage", 2)})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTenant)
}

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
