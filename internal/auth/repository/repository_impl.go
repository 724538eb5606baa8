package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	users repository.Store[domain.User]
}

func New(db *gorm.DB) domain.Repository {
	return &repo{users: repository.New[domain.User](db)}
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.users.Create(ctx, user)
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := r.users.Get(ctx, &domain.User{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	// a zero filter would match any row
	if id == 0 {
		return nil, domain.ErrUserNotFound
	}
	user, err := r.users.Get(ctx, &domain.User{ID: id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
