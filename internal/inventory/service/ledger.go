package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/inventory/domain"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockwise/internal/observability/metrics"
	"github.com/smallbiznis/stockwise/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxActionLength = 32

type LedgerParams struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	ObsMetrics    *obsmetrics.Metrics       `optional:"true"`
	LedgerMetrics *obsmetrics.LedgerMetrics `optional:"true"`
}

type Ledger struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	obsMetrics    *obsmetrics.Metrics
	ledgerMetrics *obsmetrics.LedgerMetrics
	joined        bool
}

func NewLedger(p LedgerParams) domain.Ledger {
	return &Ledger{
		db:            p.DB,
		log:           p.Log.Named("inventory.ledger"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		obsMetrics:    p.ObsMetrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

func (l *Ledger) WithTx(tx *gorm.DB) domain.Ledger {
	clone := *l
	clone.db = tx
	clone.joined = true
	return &clone
}

func (l *Ledger) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.InventoryItem, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if req.ItemID == 0 {
		return nil, domain.ErrInvalidItem
	}
	if req.ActorID == 0 {
		return nil, domain.ErrInvalidActor
	}
	if req.Delta == 0 {
		return nil, domain.ErrInvalidDelta
	}
	action, err := resolveAction(req.Action, req.Delta)
	if err != nil {
		return nil, err
	}

	var updated domain.InventoryItem
	err = l.transaction(ctx, req.TenantID, func(tx *gorm.DB) error {
		item, err := l.repo.GetItem(ctx, tx, req.TenantID, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		previous := item.Quantity
		next := previous + req.Delta
		if next < 0 {
			return &domain.InsufficientStockError{SKU: item.SKU}
		}

		now := l.clock.Now()
		ok, err := l.repo.UpdateQuantity(ctx, tx, item.TenantID, item.ID, next, item.Version, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}

		if err := l.repo.InsertLog(ctx, tx, l.newEntry(item, action, req.Delta, previous, req.ActorID, req.Reason, now)); err != nil {
			return err
		}

		item.Quantity = next
		item.Version++
		item.UpdatedAt = now
		updated = *item
		return nil
	})
	if err != nil {
		l.observeError(ctx, "adjust", err)
		return nil, err
	}

	l.obsMetrics.RecordStockAdjustment(ctx, action, req.Delta)
	obslogger.WithContext(ctx, l.log).Debug("stock adjusted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("item_id", req.ItemID.String()),
		zap.String("action", action),
		zap.Int64("delta", req.Delta),
		zap.Int64("quantity", updated.Quantity),
	)
	return &updated, nil
}

// ApplyBatch validates every line against one read of the affected items before any
// write happens. Lines touching the same item are applied in order, so their deltas
// accumulate.
func (l *Ledger) ApplyBatch(ctx context.Context, batch domain.Batch) ([]domain.InventoryItem, error) {
	if batch.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if batch.ActorID == 0 {
		return nil, domain.ErrInvalidActor
	}
	if len(batch.Lines) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	ids := make([]snowflake.ID, 0, len(batch.Lines))
	seen := make(map[snowflake.ID]struct{}, len(batch.Lines))
	for _, line := range batch.Lines {
		if line.ItemID == 0 {
			return nil, domain.ErrInvalidItem
		}
		if line.Delta == 0 {
			return nil, domain.ErrInvalidDelta
		}
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}

	var result []domain.InventoryItem
	err := l.transaction(ctx, batch.TenantID, func(tx *gorm.DB) error {
		items, err := l.repo.GetItems(ctx, tx, batch.TenantID, ids)
		if err != nil {
			return err
		}
		byID := make(map[snowflake.ID]*domain.InventoryItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		running := make(map[snowflake.ID]int64, len(ids))
		previous := make([]int64, len(batch.Lines))
		for i, line := range batch.Lines {
			item, ok := byID[line.ItemID]
			if !ok {
				return domain.ErrItemNotFound
			}
			current, ok := running[line.ItemID]
			if !ok {
				current = item.Quantity
			}
			next := current + line.Delta
			if next < 0 {
				return &domain.InsufficientStockError{SKU: item.SKU}
			}
			previous[i] = current
			running[line.ItemID] = next
		}

		now := l.clock.Now()
		for _, id := range ids {
			item := byID[id]
			ok, err := l.repo.UpdateQuantity(ctx, tx, item.TenantID, item.ID, running[id], item.Version, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrConcurrentUpdate
			}
		}

		for i, line := range batch.Lines {
			item := byID[line.ItemID]
			action, _ := resolveAction("", line.Delta)
			entry := l.newEntry(item, action, line.Delta, previous[i], batch.ActorID, batch.Reason, now)
			entry.OrderID = batch.OrderID
			if batch.OrderStatus != "" {
				status := batch.OrderStatus
				entry.OrderStatus = &status
			}
			if err := l.repo.InsertLog(ctx, tx, entry); err != nil {
				return err
			}
		}

		result = make([]domain.InventoryItem, 0, len(ids))
		for _, id := range ids {
			item := *byID[id]
			item.Quantity = running[id]
			item.Version++
			item.UpdatedAt = now
			result = append(result, item)
		}
		return nil
	})
	if err != nil {
		l.observeError(ctx, "batch", err)
		return nil, err
	}

	for _, line := range batch.Lines {
		action, _ := resolveAction("", line.Delta)
		l.obsMetrics.RecordStockAdjustment(ctx, action, line.Delta)
	}
	return result, nil
}

// Open inserts a new item and records its starting quantity as a create entry.
func (l *Ledger) Open(ctx context.Context, item *domain.InventoryItem, actorID snowflake.ID) error {
	if item == nil || item.TenantID == 0 {
		return domain.ErrInvalidTenant
	}
	if actorID == 0 {
		return domain.ErrInvalidActor
	}
	if item.Quantity < 0 {
		return domain.ErrInvalidQuantity
	}

	err := l.transaction(ctx, item.TenantID, func(tx *gorm.DB) error {
		if err := l.repo.InsertItem(ctx, tx, item); err != nil {
			return err
		}
		return l.repo.InsertLog(ctx, tx, l.newEntry(item, domain.ActionCreate, item.Quantity, 0, actorID, "", item.CreatedAt))
	})
	if err != nil {
		l.observeError(ctx, "create", err)
		return err
	}

	l.obsMetrics.RecordStockAdjustment(ctx, domain.ActionCreate, item.Quantity)
	return nil
}

// Retire zeroes the item through a delete entry and removes the row. Log entries stay.
// An item whose stock an open order still holds cannot be retired, so the order can
// always be cancelled.
func (l *Ledger) Retire(ctx context.Context, tenantID, itemID, actorID snowflake.ID, reason string) (*domain.InventoryItem, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if itemID == 0 {
		return nil, domain.ErrInvalidItem
	}
	if actorID == 0 {
		return nil, domain.ErrInvalidActor
	}

	var retired domain.InventoryItem
	err := l.transaction(ctx, tenantID, func(tx *gorm.DB) error {
		item, err := l.repo.GetItem(ctx, tx, tenantID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		held, err := l.repo.HeldByOpenOrder(ctx, tx, tenantID, itemID)
		if err != nil {
			return err
		}
		if held {
			return domain.ErrItemHeld
		}

		now := l.clock.Now()
		if err := l.repo.InsertLog(ctx, tx, l.newEntry(item, domain.ActionDelete, -item.Quantity, item.Quantity, actorID, reason, now)); err != nil {
			return err
		}
		ok, err := l.repo.DeleteItem(ctx, tx, tenantID, itemID, item.Version)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}
		retired = *item
		return nil
	})
	if err != nil {
		l.observeError(ctx, "delete", err)
		return nil, err
	}

	l.obsMetrics.RecordStockAdjustment(ctx, domain.ActionDelete, -retired.Quantity)
	return &retired, nil
}

func (l *Ledger) transaction(ctx context.Context, tenantID snowflake.ID, fn func(tx *gorm.DB) error) error {
	run := func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, tenantID); err != nil {
			return err
		}
		return fn(tx)
	}
	if l.joined {
		return run(l.db)
	}
	return l.db.WithContext(ctx).Transaction(run)
}

func (l *Ledger) newEntry(item *domain.InventoryItem, action string, delta, previous int64, actorID snowflake.ID, reason string, at time.Time) *domain.LogEntry {
	next := previous + delta
	return &domain.LogEntry{
		ID:               l.genID.Generate(),
		TenantID:         item.TenantID,
		ItemID:           item.ID,
		Action:           action,
		Delta:            &delta,
		PreviousQuantity: &previous,
		NewQuantity:      &next,
		ActorUserID:      actorID,
		Reason:           strings.TrimSpace(reason),
		CreatedAt:        at,
	}
}

func (l *Ledger) observeError(ctx context.Context, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		l.ledgerMetrics.IncRejection(operation, obsmetrics.RejectInsufficientStock)
	case errors.Is(err, domain.ErrConcurrentUpdate):
		l.ledgerMetrics.IncRejection(operation, obsmetrics.RejectConcurrentUpdate)
	case errors.Is(err, domain.ErrItemHeld):
		l.ledgerMetrics.IncRejection(operation, obsmetrics.RejectItemHeld)
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrInvalidDelta):
	default:
		l.ledgerMetrics.IncFailure(operation, err)
		obslogger.WithContext(ctx, l.log).Warn("stock ledger write failed", zap.String("operation", operation), zap.Error(err))
	}
}

// resolveAction keeps an explicit label when one is given, otherwise derives it from
// the sign of delta.
func resolveAction(action string, delta int64) (string, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		if delta > 0 {
			return domain.ActionAdd, nil
		}
		return domain.ActionRemove, nil
	}
	if len(action) > maxActionLength || strings.ContainsAny(action, " \t\r\n") {
		return "", domain.ErrInvalidAction
	}
	return action, nil
}
