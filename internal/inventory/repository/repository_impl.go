package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/inventory/domain"
	"gorm.io/gorm"
)

// Orders in these statuses can still be cancelled.
var openOrderStatuses = []string{"created", "picking"}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.InventoryItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inventory_items (
			id, tenant_id, sku, name, location, quantity, reorder_level,
			expires_at, vendor_id, status, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.TenantID,
		item.SKU,
		item.Name,
		item.Location,
		item.Quantity,
		item.ReorderLevel,
		item.ExpiresAt,
		item.VendorID,
		item.Status,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) GetItem(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID) (*domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, itemID).
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) GetItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, itemIDs []snowflake.ID) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if len(itemIDs) == 0 {
		return items, nil
	}
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, itemIDs).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, filter domain.ItemFilter) ([]*domain.InventoryItem, error) {
	var items []*domain.InventoryItem
	stmt := db.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("tenant_id = ?", filter.TenantID)

	if sku := strings.TrimSpace(filter.SKU); sku != "" {
		stmt = stmt.Where("sku = ?", sku)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.LowStock {
		stmt = stmt.Where("quantity <= reorder_level")
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}

	stmt = stmt.Order("id ASC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateQuantity(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, quantity, version int64, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET quantity = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		quantity,
		updatedAt,
		tenantID,
		itemID,
		version,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) UpdateDetails(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, version int64, update domain.DetailsUpdate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET name = ?, location = ?, reorder_level = ?, expires_at = ?, vendor_id = ?,
		     status = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		update.Name,
		update.Location,
		update.ReorderLevel,
		update.ExpiresAt,
		update.VendorID,
		update.Status,
		update.UpdatedAt,
		tenantID,
		itemID,
		version,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, version int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM inventory_items WHERE tenant_id = ? AND id = ? AND version = ?`,
		tenantID,
		itemID,
		version,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) HeldByOpenOrder(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID) (bool, error) {
	var held int64
	err := db.WithContext(ctx).
		Table("orders AS o").
		Where("o.tenant_id = ? AND o.stock_adjusted = ? AND o.status IN ?", tenantID, true, openOrderStatuses).
		Where("EXISTS (SELECT 1 FROM inventory_logs l WHERE l.tenant_id = o.tenant_id AND l.order_id = o.id AND l.item_id = ?)", itemID).
		Count(&held).Error
	if err != nil {
		return false, err
	}
	return held > 0, nil
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, entry *domain.LogEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inventory_logs (
			id, tenant_id, item_id, action, delta, previous_quantity, new_quantity,
			actor_user_id, reason, order_id, order_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TenantID,
		entry.ItemID,
		entry.Action,
		entry.Delta,
		entry.PreviousQuantity,
		entry.NewQuantity,
		entry.ActorUserID,
		entry.Reason,
		entry.OrderID,
		entry.OrderStatus,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListLogs(ctx context.Context, db *gorm.DB, filter domain.LogFilter) ([]*domain.LogEntry, error) {
	var logs []*domain.LogEntry
	stmt := db.WithContext(ctx).Model(&domain.LogEntry{}).
		Where("tenant_id = ?", filter.TenantID)

	if filter.ItemID != nil {
		stmt = stmt.Where("item_id = ?", *filter.ItemID)
	}
	if filter.OrderID != nil {
		stmt = stmt.Where("order_id = ?", *filter.OrderID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id DESC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
