package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID snowflake.ID
	Status   Status
	BeforeID snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	Get(ctx context.Context, db *gorm.DB, tenantID, orderID snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, error)
	// UpdateLifecycle persists status, flag and stamps only while the stored row still
	// has the status and flag that were read.
	UpdateLifecycle(ctx context.Context, db *gorm.DB, order *Order, expectedStatus Status, expectedAdjusted bool) (bool, error)
}
