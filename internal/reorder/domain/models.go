package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// Open reports whether the request still blocks new requests for the same item.
func (s Status) Open() bool {
	return s == StatusRequested || s == StatusOrdered
}

const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

type ReorderRequest struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	TenantID          snowflake.ID `gorm:"not null;index:ix_reorder_requests_tenant_item,priority:1"`
	ItemID            snowflake.ID `gorm:"not null;index:ix_reorder_requests_tenant_item,priority:2"`
	VendorID          *string      `gorm:"type:text"`
	RequestedQuantity int64        `gorm:"not null"`
	Status            Status       `gorm:"type:text;not null"`
	Source            string       `gorm:"type:text;not null"`
	Notes             string       `gorm:"type:text"`
	CreatedBy         snowflake.ID `gorm:"not null"`
	CreatedAt         time.Time    `gorm:"not null"`
	UpdatedAt         time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ReorderRequest) TableName() string { return "reorder_requests" }

// CanMoveTo is the request lifecycle: requested, then ordered, then received.
// Open requests may also be cancelled.
func CanMoveTo(current, target Status) bool {
	switch current {
	case StatusRequested:
		return target == StatusOrdered || target == StatusCancelled
	case StatusOrdered:
		return target == StatusReceived || target == StatusCancelled
	default:
		return false
	}
}
