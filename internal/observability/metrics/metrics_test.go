package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("action", "adjust"),
		attribute.String("tenant_id", "456"),
		attribute.String("item_id", "789"),
		attribute.String("reason", "insufficient_stock"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("action"), attrs[0].Key)
	assert.Equal(t, attribute.Key("reason"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStockAdjustment(ctx, "adjust", -3)
		m.RecordOrderTransition(ctx, "created", "picking")
		m.RecordReordersCreated(ctx, "auto", 2)
		m.RecordAccessDenied(ctx, "inventory", "not_member")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "stockwise"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordStockAdjustment(context.Background(), "order", -5)
	})
}
