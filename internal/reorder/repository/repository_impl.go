package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/internal/reorder/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.ReorderRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reorder_requests (
			id, tenant_id, item_id, vendor_id, requested_quantity, status, source,
			notes, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.TenantID,
		request.ItemID,
		request.VendorID,
		request.RequestedQuantity,
		string(request.Status),
		request.Source,
		request.Notes,
		request.CreatedBy,
		request.CreatedAt,
		request.UpdatedAt,
	).Error
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, tenantID, requestID snowflake.ID) (*domain.ReorderRequest, error) {
	var requests []domain.ReorderRequest
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, requestID).
		Limit(1).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ReorderRequest, error) {
	var requests []*domain.ReorderRequest
	stmt := db.WithContext(ctx).Model(&domain.ReorderRequest{}).
		Where("tenant_id = ?", filter.TenantID)

	if filter.ItemID != nil {
		stmt = stmt.Where("item_id = ?", *filter.ItemID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", string(filter.Status))
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id DESC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, requestID snowflake.ID, from, to domain.Status, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reorder_requests SET status = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ?`,
		string(to),
		updatedAt,
		tenantID,
		requestID,
		string(from),
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) OpenItemIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, itemIDs []snowflake.ID) (map[snowflake.ID]struct{}, error) {
	open := make(map[snowflake.ID]struct{})
	if len(itemIDs) == 0 {
		return open, nil
	}

	var ids []snowflake.ID
	if err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT item_id FROM reorder_requests
		 WHERE tenant_id = ? AND item_id IN ? AND status IN ?`,
		tenantID,
		itemIDs,
		[]string{string(domain.StatusRequested), string(domain.StatusOrdered)},
	).Scan(&ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		open[id] = struct{}{}
	}
	return open, nil
}

func (r *repo) LowStockItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]inventorydomain.InventoryItem, error) {
	var items []inventorydomain.InventoryItem
	stmt := db.WithContext(ctx).
		Where("tenant_id = ? AND quantity <= reorder_level", tenantID).
		Where(`NOT EXISTS (SELECT 1 FROM reorder_requests r
			WHERE r.tenant_id = inventory_items.tenant_id AND r.item_id = inventory_items.id AND r.status IN ?)`,
			[]string{string(domain.StatusRequested), string(domain.StatusOrdered)},
		).
		Order("id ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
