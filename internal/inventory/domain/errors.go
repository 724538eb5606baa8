package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidItem         = errors.New("invalid_item")
	ErrInvalidOrder        = errors.New("invalid_order")
	ErrInvalidSKU          = errors.New("invalid_sku")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidReorderLevel = errors.New("invalid_reorder_level")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidDelta        = errors.New("invalid_delta")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrEmptyBatch          = errors.New("empty_batch")
	ErrItemNotFound        = errors.New("item_not_found")
	ErrDuplicateSKU        = errors.New("duplicate_sku")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrConcurrentUpdate    = errors.New("concurrent_update")
	ErrItemHeld            = errors.New("item_held_by_order")
)

// InsufficientStockError names the SKU whose quantity would go negative.
type InsufficientStockError struct {
	SKU string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.SKU)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
