package domain

import "errors"

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidItem       = errors.New("invalid_item")
	ErrInvalidRequest    = errors.New("invalid_reorder_request")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrItemNotFound      = errors.New("item_not_found")
	ErrRequestNotFound   = errors.New("reorder_request_not_found")
	ErrOpenRequest       = errors.New("open_reorder_request_exists")
	ErrRequestClosed     = errors.New("reorder_request_closed")
	ErrInvalidTransition = errors.New("invalid_transition")
)
