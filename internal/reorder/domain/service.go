package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
)

type SweepRequest struct {
	DefaultRequestedQuantity *int64 `json:"defaultRequestedQuantity"`
}

type SweepResult struct {
	Created int `json:"created"`
	Scanned int `json:"scanned"`
}

type CreateRequest struct {
	ItemID            string  `json:"itemId"`
	RequestedQuantity int64   `json:"requestedQuantity"`
	VendorID          *string `json:"vendorId"`
	Notes             string  `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ListRequest struct {
	pagination.Pagination
	Status string `form:"status"`
	ItemID string `form:"item_id"`
}

type Response struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenantId"`
	ItemID            string    `json:"itemId"`
	VendorID          *string   `json:"vendorId,omitempty"`
	RequestedQuantity int64     `json:"requestedQuantity"`
	Status            Status    `json:"status"`
	Source            string    `json:"source"`
	Notes             string    `json:"notes,omitempty"`
	CreatedBy         string    `json:"createdBy"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type ListResponse struct {
	Requests []Response           `json:"requests"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type Service interface {
	// Sweep creates automatic requests for low-stock items of one tenant.
	// defaultQuantity overrides the configured quantity when positive.
	Sweep(ctx context.Context, tenantID snowflake.ID, defaultQuantity int64, actorID snowflake.ID) (SweepResult, error)
	Create(ctx context.Context, access authorization.Access, req CreateRequest) (*Response, error)
	List(ctx context.Context, access authorization.Access, req ListRequest) (*ListResponse, error)
	UpdateStatus(ctx context.Context, access authorization.Access, requestID string, req UpdateStatusRequest) (*Response, error)
}
