package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID snowflake.ID
	ItemID   *snowflake.ID
	Status   Status
	BeforeID snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *ReorderRequest) error
	Get(ctx context.Context, db *gorm.DB, tenantID, requestID snowflake.ID) (*ReorderRequest, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ReorderRequest, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, requestID snowflake.ID, from, to Status, updatedAt time.Time) (bool, error)
	// OpenItemIDs returns which of itemIDs already have a requested or ordered request.
	OpenItemIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, itemIDs []snowflake.ID) (map[snowflake.ID]struct{}, error)
	// LowStockItems returns up to limit items with quantity at or below their reorder
	// level and no requested or ordered request, ordered by id.
	LowStockItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]inventorydomain.InventoryItem, error)
}
