package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
)

type CreateOrderLine struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []CreateOrderLine `json:"items"`
	Notes string            `json:"notes"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type ListOrderRequest struct {
	pagination.Pagination
	Status string `form:"status"`
}

type LineResponse struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
}

type OrderResponse struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenantId"`
	Status          Status         `json:"status"`
	Lines           []LineResponse `json:"lines"`
	Notes           string         `json:"notes,omitempty"`
	CreatedBy       string         `json:"createdBy"`
	StockAdjusted   bool           `json:"stockAdjusted"`
	StockAdjustedAt *time.Time     `json:"stockAdjustedAt,omitempty"`
	StockRestoredAt *time.Time     `json:"stockRestoredAt,omitempty"`
	FulfilledAt     *time.Time     `json:"fulfilledAt,omitempty"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type ListOrderResponse struct {
	Orders   []OrderResponse      `json:"orders"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type Service interface {
	Create(ctx context.Context, access authorization.Access, req CreateOrderRequest) (*OrderResponse, error)
	Get(ctx context.Context, access authorization.Access, orderID string) (*OrderResponse, error)
	List(ctx context.Context, access authorization.Access, req ListOrderRequest) (*ListOrderResponse, error)
	Transition(ctx context.Context, access authorization.Access, orderID string, req TransitionRequest) (*OrderResponse, error)
}
