package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, tenantID, orderID snowflake.ID) (*domain.Order, error) {
	var orders []domain.Order
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		Limit(1).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{}).
		Where("tenant_id = ?", filter.TenantID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id DESC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, order *domain.Order, expectedStatus domain.Status, expectedAdjusted bool) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, stock_adjusted = ?, stock_adjusted_at = ?, stock_restored_at = ?,
		     fulfilled_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ? AND stock_adjusted = ?`,
		string(order.Status),
		order.StockAdjusted,
		order.StockAdjustedAt,
		order.StockRestoredAt,
		order.FulfilledAt,
		order.CancelledAt,
		order.UpdatedAt,
		order.TenantID,
		order.ID,
		string(expectedStatus),
		expectedAdjusted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
