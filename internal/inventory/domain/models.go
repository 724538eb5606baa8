// Package domain contains persistence models and contracts for inventory items and
// the stock ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// InventoryItem is one stock-keeping unit of a tenant. Quantity is authoritative and
// only the ledger writes it. Version increments on every write.
type InventoryItem struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TenantID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_inventory_items_tenant_sku,priority:1"`
	SKU          string       `gorm:"column:sku;type:text;not null;uniqueIndex:ux_inventory_items_tenant_sku,priority:2"`
	Name         string       `gorm:"type:text;not null"`
	Location     string       `gorm:"type:text"`
	Quantity     int64        `gorm:"not null;default:0"`
	ReorderLevel int64        `gorm:"not null;default:0"`
	ExpiresAt    *time.Time
	VendorID     *string   `gorm:"type:text"`
	Status       string    `gorm:"type:text;not null"`
	Version      int64     `gorm:"not null;default:1"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (InventoryItem) TableName() string { return "inventory_items" }

// LogEntry is an immutable stock ledger row.
type LogEntry struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	TenantID         snowflake.ID `gorm:"not null;index:ix_inventory_logs_tenant_created,priority:1"`
	ItemID           snowflake.ID `gorm:"not null;index"`
	Action           string       `gorm:"type:text;not null"`
	Delta            *int64
	PreviousQuantity *int64
	NewQuantity      *int64
	ActorUserID      snowflake.ID  `gorm:"not null"`
	Reason           string        `gorm:"type:text"`
	OrderID          *snowflake.ID `gorm:"index"`
	OrderStatus      *string       `gorm:"type:text"`
	CreatedAt        time.Time     `gorm:"not null;index:ix_inventory_logs_tenant_created,priority:2"`
}

// TableName sets the database table name.
func (LogEntry) TableName() string { return "inventory_logs" }
