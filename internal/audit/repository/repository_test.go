package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLogs(t *testing.T) (*gorm.DB, domain.Repository) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.AuditLog{}))

	r := Provide()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tenantA, tenantB := snowflake.ID(1), snowflake.ID(2)
	entries := []domain.AuditLog{
		{ID: 10, TenantID: &tenantA, ActorType: "user", Action: "order.created", TargetType: "order", CreatedAt: base},
		{ID: 11, TenantID: &tenantA, ActorType: "user", Action: "order.transitioned", TargetType: "order", CreatedAt: base.Add(time.Minute)},
		{ID: 12, TenantID: &tenantA, ActorType: "system", Action: "reorder_request.created", TargetType: "reorder_request", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 13, TenantID: &tenantB, ActorType: "user", Action: "order.created", TargetType: "order", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, r.Insert(context.Background(), conn, &entries[i]))
	}
	return conn, r
}

func ids(logs []*domain.AuditLog) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ID)
	}
	return out
}

func TestListIsTenantScopedNewestFirst(t *testing.T) {
	conn, r := seedLogs(t)

	logs, err := r.List(context.Background(), conn, domain.ListFilter{TenantID: 1})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{12, 11, 10}, ids(logs))
}

func TestListFilters(t *testing.T) {
	conn, r := seedLogs(t)
	ctx := context.Background()

	logs, err := r.List(ctx, conn, domain.ListFilter{TenantID: 1, TargetType: "order", ActorType: "user"})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{11, 10}, ids(logs))

	start := time.Date(2025, 3, 1, 9, 1, 0, 0, time.UTC)
	logs, err = r.List(ctx, conn, domain.ListFilter{TenantID: 1, StartAt: &start})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{12, 11}, ids(logs))
}

func TestListCursorFetchesOneExtra(t *testing.T) {
	conn, r := seedLogs(t)
	ctx := context.Background()

	logs, err := r.List(ctx, conn, domain.ListFilter{TenantID: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{12, 11}, ids(logs))

	logs, err = r.List(ctx, conn, domain.ListFilter{
		TenantID: 1,
		Limit:    1,
		Cursor:   &domain.AuditCursor{ID: logs[0].ID, CreatedAt: logs[0].CreatedAt},
	})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{11, 10}, ids(logs))
}
