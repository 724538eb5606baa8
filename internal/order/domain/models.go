package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusPicking   Status = "picking"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// Line is the snapshot of an item taken when the order was created.
type Line struct {
	ItemID   snowflake.ID `json:"itemId"`
	Quantity int64        `json:"quantity"`
	SKU      string       `json:"sku"`
	Name     string       `json:"name"`
}

type Order struct {
	ID              snowflake.ID              `gorm:"primaryKey"`
	TenantID        snowflake.ID              `gorm:"not null;index:ix_orders_tenant_status,priority:1"`
	Status          Status                    `gorm:"type:text;not null;index:ix_orders_tenant_status,priority:2"`
	Lines           datatypes.JSONSlice[Line] `gorm:"not null"`
	Notes           string                    `gorm:"type:text"`
	CreatedBy       snowflake.ID              `gorm:"not null"`
	StockAdjusted   bool                      `gorm:"not null;default:false"`
	StockAdjustedAt *time.Time
	StockRestoredAt *time.Time
	FulfilledAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }
