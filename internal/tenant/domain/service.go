package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/stockwise/internal/authorization"
)

type Service interface {
	Create(ctx context.Context, principal authorization.Principal, req CreateTenantRequest) (*TenantResponse, error)
	List(ctx context.Context, principal authorization.Principal) ([]TenantListResponseItem, error)
	ListMembers(ctx context.Context, access authorization.Access) ([]MemberResponse, error)
	UpsertMember(ctx context.Context, access authorization.Access, userID string, role string) (*MemberResponse, error)
	RemoveMember(ctx context.Context, access authorization.Access, userID string) error
}

type CreateTenantRequest struct {
	Name string
}

type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type TenantListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrForbidden      = errors.New("forbidden")
	ErrUserNotFound   = errors.New("user_not_found")
	ErrMemberNotFound = errors.New("member_not_found")
	ErrSlugExhausted  = errors.New("slug_exhausted")
)
