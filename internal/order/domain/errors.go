package domain

import "errors"

var (
	ErrInvalidTenant        = errors.New("invalid_tenant")
	ErrInvalidOrder         = errors.New("invalid_order")
	ErrInvalidItem          = errors.New("invalid_item")
	ErrInactiveItem         = errors.New("inactive_item")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
	ErrEmptyOrder           = errors.New("empty_order")
	ErrTooManyLines         = errors.New("too_many_lines")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderClosed          = errors.New("order_closed")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrConcurrentTransition = errors.New("concurrent_transition")
)
