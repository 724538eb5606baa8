package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ItemFilter narrows item listings. Cursor is the last id of the previous page.
type ItemFilter struct {
	TenantID snowflake.ID
	SKU      string
	Status   string
	LowStock bool
	AfterID  snowflake.ID
	Limit    int
}

// LogFilter narrows ledger listings. Entries are returned newest first.
type LogFilter struct {
	TenantID snowflake.ID
	ItemID   *snowflake.ID
	OrderID  *snowflake.ID
	Action   string
	BeforeID snowflake.ID
	Limit    int
}

// DetailsUpdate carries descriptive columns; quantity is never part of it.
type DetailsUpdate struct {
	Name         string
	Location     string
	ReorderLevel int64
	ExpiresAt    *time.Time
	VendorID     *string
	Status       string
	UpdatedAt    time.Time
}

type Repository interface {
	InsertItem(ctx context.Context, db *gorm.DB, item *InventoryItem) error
	GetItem(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID) (*InventoryItem, error)
	GetItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, itemIDs []snowflake.ID) ([]InventoryItem, error)
	ListItems(ctx context.Context, db *gorm.DB, filter ItemFilter) ([]*InventoryItem, error)
	// UpdateQuantity writes only when the stored version still equals version and
	// reports whether a row was written.
	UpdateQuantity(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, quantity, version int64, updatedAt time.Time) (bool, error)
	UpdateDetails(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, version int64, update DetailsUpdate) (bool, error)
	DeleteItem(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID, version int64) (bool, error)
	// HeldByOpenOrder reports whether an order that has not reached a terminal
	// status has taken stock of the item off the shelf.
	HeldByOpenOrder(ctx context.Context, db *gorm.DB, tenantID, itemID snowflake.ID) (bool, error)

	InsertLog(ctx context.Context, db *gorm.DB, entry *LogEntry) error
	ListLogs(ctx context.Context, db *gorm.DB, filter LogFilter) ([]*LogEntry, error)
}
