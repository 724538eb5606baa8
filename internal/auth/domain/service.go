package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/authorization"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	VerifyCredentials(ctx context.Context, email string, password string) (*User, error)
	// Principal loads the caller behind an already verified bearer token.
	Principal(ctx context.Context, rawToken string) (authorization.Principal, error)
}

type CreateUserRequest struct {
	Email    string
	Password string
	Role     string
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenVerifier checks a bearer token and yields the user id it was issued for.
type TokenVerifier interface {
	Verify(raw string) (snowflake.ID, error)
}
