package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
	"gorm.io/gorm"
)

// AdjustRequest changes one item's quantity by Delta. Action overrides the derived
// add/remove label when set.
type AdjustRequest struct {
	TenantID snowflake.ID
	ItemID   snowflake.ID
	Delta    int64
	Reason   string
	Action   string
	ActorID  snowflake.ID
}

type BatchLine struct {
	ItemID snowflake.ID
	Delta  int64
}

// Batch is an all-or-nothing set of adjustments, typically one per order line.
type Batch struct {
	TenantID    snowflake.ID
	Lines       []BatchLine
	Reason      string
	ActorID     snowflake.ID
	OrderID     *snowflake.ID
	OrderStatus string
}

// Ledger is the only writer of InventoryItem.Quantity.
type Ledger interface {
	// WithTx returns a ledger that joins tx instead of opening its own transaction.
	WithTx(tx *gorm.DB) Ledger
	Adjust(ctx context.Context, req AdjustRequest) (*InventoryItem, error)
	ApplyBatch(ctx context.Context, batch Batch) ([]InventoryItem, error)
	Open(ctx context.Context, item *InventoryItem, actorID snowflake.ID) error
	Retire(ctx context.Context, tenantID, itemID, actorID snowflake.ID, reason string) (*InventoryItem, error)
}

type CreateItemRequest struct {
	SKU          string     `json:"sku"`
	Name         string     `json:"name"`
	Location     string     `json:"location"`
	Quantity     int64      `json:"quantity"`
	ReorderLevel int64      `json:"reorderLevel"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	VendorID     *string    `json:"vendorId"`
	Status       string     `json:"status"`
}

type UpdateItemRequest struct {
	Name         *string    `json:"name"`
	Location     *string    `json:"location"`
	Quantity     *int64     `json:"quantity"`
	ReorderLevel *int64     `json:"reorderLevel"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	VendorID     *string    `json:"vendorId"`
	Status       *string    `json:"status"`
	Reason       string     `json:"reason"`
}

type AdjustItemRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
	Action string `json:"action"`
}

type ListItemRequest struct {
	pagination.Pagination
	SKU      string `form:"sku"`
	Status   string `form:"status"`
	LowStock bool   `form:"low_stock"`
}

type ListLogRequest struct {
	pagination.Pagination
	Action  string `form:"action"`
	OrderID string `form:"order_id"`
}

type Item struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenantId"`
	SKU          string     `json:"sku"`
	Name         string     `json:"name"`
	Location     string     `json:"location"`
	Quantity     int64      `json:"quantity"`
	ReorderLevel int64      `json:"reorderLevel"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	VendorID     *string    `json:"vendorId,omitempty"`
	Status       string     `json:"status"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Log struct {
	ID               string    `json:"id"`
	ItemID           string    `json:"itemId"`
	Action           string    `json:"action"`
	Delta            *int64    `json:"delta,omitempty"`
	PreviousQuantity *int64    `json:"previousQuantity,omitempty"`
	NewQuantity      *int64    `json:"newQuantity,omitempty"`
	ActorUserID      string    `json:"actorUserId"`
	Reason           string    `json:"reason,omitempty"`
	OrderID          *string   `json:"orderId,omitempty"`
	OrderStatus      *string   `json:"orderStatus,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ListItemResponse struct {
	Items    []Item               `json:"items"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type ListLogResponse struct {
	Logs     []Log                `json:"logs"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

// Service is the tenant-facing item API. Quantity changes are delegated to the Ledger.
type Service interface {
	Create(ctx context.Context, access authorization.Access, req CreateItemRequest) (*Item, error)
	Get(ctx context.Context, access authorization.Access, itemID string) (*Item, error)
	List(ctx context.Context, access authorization.Access, req ListItemRequest) (*ListItemResponse, error)
	Update(ctx context.Context, access authorization.Access, itemID string, req UpdateItemRequest) (*Item, error)
	Delete(ctx context.Context, access authorization.Access, itemID string) error
	Adjust(ctx context.Context, access authorization.Access, itemID string, req AdjustItemRequest) (*Item, error)
	ListItemLogs(ctx context.Context, access authorization.Access, itemID string, req pagination.Pagination) (*ListLogResponse, error)
	ListLogs(ctx context.Context, access authorization.Access, req ListLogRequest) (*ListLogResponse, error)
}
