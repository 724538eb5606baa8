package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateItemRequest
		err  error
	}{
		{"missing sku", domain.CreateItemRequest{Name: "Bolt"}, domain.ErrInvalidSKU},
		{"missing name", domain.CreateItemRequest{SKU: "B-1"}, domain.ErrInvalidName},
		{"negative quantity", domain.CreateItemRequest{SKU: "B-1", Name: "Bolt", Quantity: -1}, domain.ErrInvalidQuantity},
		{"negative reorder level", domain.CreateItemRequest{SKU: "B-1", Name: "Bolt", ReorderLevel: -1}, domain.ErrInvalidReorderLevel},
		{"unknown status", domain.CreateItemRequest{SKU: "B-1", Name: "Bolt", Status: "archived"}, domain.ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tenantA, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreateItemRejectsDuplicateSKUPerTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createItem(t, tenantA, "SKU-1", 1)

	_, err := f.svc.Create(ctx, tenantA, domain.CreateItemRequest{SKU: "SKU-1", Name: "Again"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)

	other, err := f.svc.Create(ctx, tenantB, domain.CreateItemRequest{SKU: "SKU-1", Name: "Other tenant"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, other.Status)
}

func TestItemsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, tenantA, "SKU-1", 1)

	_, err := f.svc.Get(ctx, tenantB, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	err = f.svc.Delete(ctx, tenantB, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	resp, err := f.svc.List(ctx, tenantB, domain.ListItemRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	logs, err := f.svc.ListItemLogs(ctx, tenantB, item.ID, paginationAll)
	require.NoError(t, err)
	assert.Empty(t, logs.Logs)
}

func TestListItemsFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.createItem(t, tenantA, "LOW", 1)
	f.createItem(t, tenantA, "MID", 50)
	f.createItem(t, tenantA, "HIGH", 100)

	level := int64(5)
	_, err := f.svc.Update(ctx, tenantA, low.ID, domain.UpdateItemRequest{ReorderLevel: &level})
	require.NoError(t, err)

	first, err := f.svc.List(ctx, tenantA, domain.ListItemRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, "LOW", first.Items[0].SKU)

	second, err := f.svc.List(ctx, tenantA, domain.ListItemRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.PageInfo.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "HIGH", second.Items[0].SKU)
	assert.False(t, second.PageInfo.HasMore)

	lowStock, err := f.svc.List(ctx, tenantA, domain.ListItemRequest{LowStock: true})
	require.NoError(t, err)
	require.Len(t, lowStock.Items, 1)
	assert.Equal(t, "LOW", lowStock.Items[0].SKU)

	bySKU, err := f.svc.List(ctx, tenantA, domain.ListItemRequest{SKU: "MID"})
	require.NoError(t, err)
	require.Len(t, bySKU.Items, 1)

	_, err = f.svc.List(ctx, tenantA, domain.ListItemRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestUpdateRoutesQuantityThroughLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, tenantA, "SKU-1", 10)

	name := "Renamed"
	status := "inactive"
	quantity := int64(4)
	updated, err := f.svc.Update(ctx, tenantA, item.ID, domain.UpdateItemRequest{
		Name:     &name,
		Status:   &status,
		Quantity: &quantity,
		Reason:   "stock count",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, domain.StatusInactive, updated.Status)
	assert.Equal(t, int64(4), updated.Quantity)
	assert.Equal(t, int64(3), updated.Version)

	logs := f.logs(t, tenantA, item.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActionUpdate, logs[0].Action)
	assert.Equal(t, int64(-6), *logs[0].Delta)
	assert.Equal(t, "stock count", logs[0].Reason)

	negative := int64(-1)
	_, err = f.svc.Update(ctx, tenantA, item.ID, domain.UpdateItemRequest{Quantity: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestDeleteLogsZeroingEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, tenantA, "SKU-1", 6)

	require.NoError(t, f.svc.Delete(ctx, tenantA, item.ID))

	_, err := f.svc.Get(ctx, tenantA, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	logs := f.logs(t, tenantA, item.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActionDelete, logs[0].Action)
	assert.Equal(t, int64(-6), *logs[0].Delta)
	assert.Equal(t, int64(0), *logs[0].NewQuantity)

	deletes, err := f.svc.ListLogs(ctx, tenantA, domain.ListLogRequest{Action: "delete"})
	require.NoError(t, err)
	assert.Len(t, deletes.Logs, 1)

	_, err = f.svc.ListLogs(ctx, tenantA, domain.ListLogRequest{OrderID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}
