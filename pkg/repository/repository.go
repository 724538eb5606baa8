// Package repository provides a generic gorm store for the small lookup tables
// (tenants, users) whose access is plain equality matching.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrUnscoped is returned when Get is called without a filter.
var ErrUnscoped = errors.New("repository: query without filter")

type Store[T any] interface {
	WithTx(tx *gorm.DB) Store[T]
	List(ctx context.Context, filter *T, opts ...Option) ([]*T, error)
	// Get returns nil without error when nothing matches.
	Get(ctx context.Context, filter *T, opts ...Option) (*T, error)
	Exists(ctx context.Context, filter *T) (bool, error)
	Count(ctx context.Context, filter *T) (int64, error)
	Create(ctx context.Context, row *T) error
}

// Option adjusts a query before it runs.
type Option func(tx *gorm.DB) *gorm.DB

func OrderBy(clause string) Option {
	return func(tx *gorm.DB) *gorm.DB { return tx.Order(clause) }
}

func Limit(n int) Option {
	return func(tx *gorm.DB) *gorm.DB {
		if n <= 0 {
			return tx
		}
		return tx.Limit(n)
	}
}

func Where(query string, args ...any) Option {
	return func(tx *gorm.DB) *gorm.DB { return tx.Where(query, args...) }
}

type store[T any] struct {
	db *gorm.DB
}

func New[T any](db *gorm.DB) Store[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTx(tx *gorm.DB) Store[T] {
	return &store[T]{db: tx}
}

func (s *store[T]) List(ctx context.Context, filter *T, opts ...Option) ([]*T, error) {
	var rows []*T
	if err := s.query(ctx, filter, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *store[T]) Get(ctx context.Context, filter *T, opts ...Option) (*T, error) {
	if filter == nil {
		return nil, ErrUnscoped
	}
	var row T
	err := s.query(ctx, filter, opts).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &row, nil
}

func (s *store[T]) Exists(ctx context.Context, filter *T) (bool, error) {
	n, err := s.Count(ctx, filter)
	return n > 0, err
}

func (s *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var n int64
	err := s.query(ctx, filter, nil).Count(&n).Error
	return n, err
}

func (s *store[T]) Create(ctx context.Context, row *T) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *store[T]) query(ctx context.Context, filter *T, opts []Option) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		tx = tx.Where(filter)
	}
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}
