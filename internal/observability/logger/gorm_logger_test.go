package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	obscontext "github.com/smallbiznis/stockwise/internal/observability/context"
)

func TestShapeOf(t *testing.T) {
	cases := []struct {
		sql  string
		want statementShape
	}{
		{`UPDATE "inventory_items" SET "quantity"=? WHERE id = ?`, statementShape{operation: "UPDATE", table: "inventory_items"}},
		{`SELECT * FROM "inventory_items" WHERE tenant_id = ? FOR UPDATE`, statementShape{operation: "SELECT", table: "inventory_items", rowLock: true}},
		{"INSERT INTO `inventory_logs` (`id`) VALUES (?)", statementShape{operation: "INSERT", table: "inventory_logs"}},
		{`WITH open AS (SELECT 1) SELECT * FROM reorder_requests`, statementShape{operation: "SELECT", table: "reorder_requests"}},
		{"", statementShape{operation: "UNKNOWN"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, shapeOf(tc.sql), tc.sql)
	}
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestSQLLoggerTagsStatements(t *testing.T) {
	logs := observe(t)
	l := NewSQLLogger(SQLConfig{Level: gormlogger.Info})
	ctx := obscontext.WithTenantID(context.Background(), "tenant-1")

	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `SELECT * FROM "orders" WHERE id = ? FOR UPDATE`, 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "orders", fields["table"])
	assert.Equal(t, true, fields["row_lock"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, int64(1), fields["rows_affected"])
}

func TestSQLLoggerLevels(t *testing.T) {
	logs := observe(t)
	l := NewSQLLogger(DefaultSQLConfig())
	query := func() (string, int64) { return "SELECT 1", 0 }

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), query, errors.New("deadlock detected"))
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)

	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("ignored"))
	assert.Equal(t, 2, logs.Len())
}

func TestWithContextSkipsUnsetFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "user", "42")
	WithContext(ctx, base).Info("order created")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["actor_id"])
	assert.NotContains(t, fields, "tenant_id")
	assert.NotContains(t, fields, "trace_id")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "chatty"})
	assert.Error(t, err)
}
