package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/inventory/domain"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	"github.com/smallbiznis/stockwise/pkg/db"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
	"github.com/smallbiznis/stockwise/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Ledger domain.Ledger
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	ledger domain.Ledger
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("inventory.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
	}
}

func (s *Service) Create(ctx context.Context, access authorization.Access, req domain.CreateItemRequest) (*domain.Item, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.ReorderLevel < 0 {
		return nil, domain.ErrInvalidReorderLevel
	}
	status, err := normalizeStatus(req.Status)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := domain.InventoryItem{
		ID:           s.genID.Generate(),
		TenantID:     access.TenantID,
		SKU:          sku,
		Name:         name,
		Location:     strings.TrimSpace(req.Location),
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		ExpiresAt:    req.ExpiresAt,
		VendorID:     normalizeOptional(req.VendorID),
		Status:       status,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.ledger.Open(ctx, &item, access.UserID); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}

	obslogger.WithContext(ctx, s.log).Info("inventory item created",
		zap.String("tenant_id", item.TenantID.String()),
		zap.String("item_id", item.ID.String()),
		zap.String("sku", item.SKU),
	)
	return toItem(item), nil
}

func (s *Service) Get(ctx context.Context, access authorization.Access, itemID string) (*domain.Item, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	item, err := s.repo.GetItem(ctx, s.db, access.TenantID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return toItem(*item), nil
}

func (s *Service) List(ctx context.Context, access authorization.Access, req domain.ListItemRequest) (*domain.ListItemResponse, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	status := strings.TrimSpace(req.Status)
	if status != "" {
		normalized, err := normalizeStatus(status)
		if err != nil {
			return nil, err
		}
		status = normalized
	}

	filter := domain.ItemFilter{
		TenantID: access.TenantID,
		SKU:      req.SKU,
		Status:   status,
		LowStock: req.LowStock,
		Limit:    pagination.NormalizePageSize(req.PageSize, defaultPageSize, maxPageSize),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		afterID, err := decodeIDCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.ListItems(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	items, pageInfo := pagination.Cut(items, filter.Limit, func(item *domain.InventoryItem) string {
		return pagination.IDToken(item.ID.String())
	})

	resp := &domain.ListItemResponse{Items: make([]domain.Item, 0, len(items)), PageInfo: pageInfo}
	for _, item := range items {
		resp.Items = append(resp.Items, *toItem(*item))
	}
	return resp, nil
}

// Update writes descriptive fields and, when the quantity differs, routes the change
// through the ledger in the same transaction.
func (s *Service) Update(ctx context.Context, access authorization.Access, itemID string, req domain.UpdateItemRequest) (*domain.Item, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.ReorderLevel != nil && *req.ReorderLevel < 0 {
		return nil, domain.ErrInvalidReorderLevel
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, domain.ErrInvalidName
	}

	var updated *domain.InventoryItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, access.TenantID); err != nil {
			return err
		}
		item, err := s.repo.GetItem(ctx, tx, access.TenantID, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		update := domain.DetailsUpdate{
			Name:         item.Name,
			Location:     item.Location,
			ReorderLevel: item.ReorderLevel,
			ExpiresAt:    item.ExpiresAt,
			VendorID:     item.VendorID,
			Status:       item.Status,
			UpdatedAt:    s.clock.Now(),
		}
		if req.Name != nil {
			update.Name = strings.TrimSpace(*req.Name)
		}
		if req.Location != nil {
			update.Location = strings.TrimSpace(*req.Location)
		}
		if req.ReorderLevel != nil {
			update.ReorderLevel = *req.ReorderLevel
		}
		if req.ExpiresAt != nil {
			update.ExpiresAt = req.ExpiresAt
		}
		if req.VendorID != nil {
			update.VendorID = normalizeOptional(req.VendorID)
		}
		if req.Status != nil {
			status, err := normalizeStatus(*req.Status)
			if err != nil {
				return err
			}
			update.Status = status
		}

		ok, err := s.repo.UpdateDetails(ctx, tx, access.TenantID, id, item.Version, update)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}

		if req.Quantity != nil && *req.Quantity != item.Quantity {
			if _, err := s.ledger.WithTx(tx).Adjust(ctx, domain.AdjustRequest{
				TenantID: access.TenantID,
				ItemID:   id,
				Delta:    *req.Quantity - item.Quantity,
				Reason:   req.Reason,
				Action:   domain.ActionUpdate,
				ActorID:  access.UserID,
			}); err != nil {
				return err
			}
		}

		updated, err = s.repo.GetItem(ctx, tx, access.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrItemNotFound
	}
	return toItem(*updated), nil
}

func (s *Service) Delete(ctx context.Context, access authorization.Access, itemID string) error {
	id, err := parseID(itemID)
	if err != nil {
		return domain.ErrInvalidItem
	}
	item, err := s.ledger.Retire(ctx, access.TenantID, id, access.UserID, "")
	if err != nil {
		return err
	}
	obslogger.WithContext(ctx, s.log).Info("inventory item deleted",
		zap.String("tenant_id", item.TenantID.String()),
		zap.String("item_id", item.ID.String()),
		zap.Int64("quantity", item.Quantity),
	)
	return nil
}

func (s *Service) Adjust(ctx context.Context, access authorization.Access, itemID string, req domain.AdjustItemRequest) (*domain.Item, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	item, err := s.ledger.Adjust(ctx, domain.AdjustRequest{
		TenantID: access.TenantID,
		ItemID:   id,
		Delta:    req.Delta,
		Reason:   req.Reason,
		Action:   req.Action,
		ActorID:  access.UserID,
	})
	if err != nil {
		return nil, err
	}
	return toItem(*item), nil
}

func (s *Service) ListItemLogs(ctx context.Context, access authorization.Access, itemID string, req pagination.Pagination) (*domain.ListLogResponse, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	return s.listLogs(ctx, domain.LogFilter{TenantID: access.TenantID, ItemID: &id}, req)
}

func (s *Service) ListLogs(ctx context.Context, access authorization.Access, req domain.ListLogRequest) (*domain.ListLogResponse, error) {
	filter := domain.LogFilter{
		TenantID: access.TenantID,
		Action:   strings.ToLower(strings.TrimSpace(req.Action)),
	}
	if raw := strings.TrimSpace(req.OrderID); raw != "" {
		orderID, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidOrder
		}
		filter.OrderID = &orderID
	}
	return s.listLogs(ctx, filter, req.Pagination)
}

func (s *Service) listLogs(ctx context.Context, filter domain.LogFilter, page pagination.Pagination) (*domain.ListLogResponse, error) {
	if filter.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	filter.Limit = pagination.NormalizePageSize(page.PageSize, defaultPageSize, maxPageSize)
	if token := strings.TrimSpace(page.PageToken); token != "" {
		beforeID, err := decodeIDCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		filter.BeforeID = beforeID
	}

	entries, err := s.repo.ListLogs(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	entries, pageInfo := pagination.Cut(entries, filter.Limit, func(entry *domain.LogEntry) string {
		return pagination.IDToken(entry.ID.String())
	})

	resp := &domain.ListLogResponse{Logs: make([]domain.Log, 0, len(entries)), PageInfo: pageInfo}
	for _, entry := range entries {
		resp.Logs = append(resp.Logs, toLog(*entry))
	}
	return resp, nil
}

func decodeIDCursor(token string) (snowflake.ID, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return 0, err
	}
	return parseID(cursor.ID)
}

func normalizeStatus(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", domain.StatusActive:
		return domain.StatusActive, nil
	case domain.StatusInactive:
		return domain.StatusInactive, nil
	default:
		return "", domain.ErrInvalidStatus
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func toItem(item domain.InventoryItem) *domain.Item {
	return &domain.Item{
		ID:           item.ID.String(),
		TenantID:     item.TenantID.String(),
		SKU:          item.SKU,
		Name:         item.Name,
		Location:     item.Location,
		Quantity:     item.Quantity,
		ReorderLevel: item.ReorderLevel,
		ExpiresAt:    item.ExpiresAt,
		VendorID:     item.VendorID,
		Status:       item.Status,
		Version:      item.Version,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func toLog(entry domain.LogEntry) domain.Log {
	out := domain.Log{
		ID:               entry.ID.String(),
		ItemID:           entry.ItemID.String(),
		Action:           entry.Action,
		Delta:            entry.Delta,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
		ActorUserID:      entry.ActorUserID.String(),
		Reason:           entry.Reason,
		OrderStatus:      entry.OrderStatus,
		CreatedAt:        entry.CreatedAt,
	}
	if entry.OrderID != nil {
		orderID := entry.OrderID.String()
		out.OrderID = &orderID
	}
	return out
}
