package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Repository persists platform users. Lookups return ErrUserNotFound rather than nil.
type Repository interface {
	Create(ctx context.Context, user *User) error
	// FindByEmail expects an already normalized address.
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
}
