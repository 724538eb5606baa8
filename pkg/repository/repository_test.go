package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type supplier struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
	Name string
}

func newStore(t *testing.T) Store[supplier] {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&supplier{}))
	return New[supplier](conn)
}

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, &supplier{ID: 1, Code: "ACME", Name: "Acme"}))
	require.NoError(t, s.Create(ctx, &supplier{ID: 2, Code: "GLOBEX", Name: "Globex"}))

	got, err := s.Get(ctx, &supplier{Code: "GLOBEX"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)

	missing, err := s.Get(ctx, &supplier{Code: "INITECH"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.Get(ctx, nil)
	assert.ErrorIs(t, err, ErrUnscoped)

	ok, err := s.Exists(ctx, &supplier{Code: "ACME"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreListOptions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for i, code := range []string{"C", "A", "B"} {
		require.NoError(t, s.Create(ctx, &supplier{ID: int64(i + 1), Code: code}))
	}

	rows, err := s.List(ctx, nil, OrderBy("code DESC"), Limit(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].Code)
	assert.Equal(t, "B", rows[1].Code)

	rows, err = s.List(ctx, nil, Where("code <> ?", "A"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
