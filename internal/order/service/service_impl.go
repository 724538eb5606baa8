package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/internal/locking"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockwise/internal/observability/metrics"
	"github.com/smallbiznis/stockwise/internal/order/domain"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
	"github.com/smallbiznis/stockwise/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Items         inventorydomain.Repository
	Ledger        inventorydomain.Ledger
	Policy        *config.InventoryConfigHolder `optional:"true"`
	Guard         *locking.Guard                `optional:"true"`
	AuditSvc      auditdomain.Service           `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics           `optional:"true"`
	LedgerMetrics *obsmetrics.LedgerMetrics     `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	items         inventorydomain.Repository
	ledger        inventorydomain.Ledger
	policy        *config.InventoryConfigHolder
	guard         *locking.Guard
	auditSvc      auditdomain.Service
	obsMetrics    *obsmetrics.Metrics
	ledgerMetrics *obsmetrics.LedgerMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("order.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		items:         p.Items,
		ledger:        p.Ledger,
		policy:        p.Policy,
		guard:         p.Guard,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

func (s *Service) Create(ctx context.Context, access authorization.Access, req domain.CreateOrderRequest) (*domain.OrderResponse, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	if len(req.Items) > s.policy.Get().MaxOrderLines {
		return nil, domain.ErrTooManyLines
	}

	ids := make([]snowflake.ID, 0, len(req.Items))
	requested := make([]snowflake.ID, len(req.Items))
	for i, line := range req.Items {
		id, err := parseID(line.ItemID)
		if err != nil {
			return nil, domain.ErrInvalidItem
		}
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		requested[i] = id
		ids = append(ids, id)
	}

	items, err := s.items.GetItems(ctx, s.db, access.TenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]inventorydomain.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	lines := make([]domain.Line, 0, len(req.Items))
	for i, line := range req.Items {
		item, ok := byID[requested[i]]
		if !ok {
			return nil, domain.ErrInvalidItem
		}
		if item.Status != inventorydomain.StatusActive {
			return nil, domain.ErrInactiveItem
		}
		lines = append(lines, domain.Line{
			ItemID:   item.ID,
			Quantity: line.Quantity,
			SKU:      item.SKU,
			Name:     item.Name,
		})
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:        s.genID.Generate(),
		TenantID:  access.TenantID,
		Status:    domain.StatusCreated,
		Lines:     datatypes.JSONSlice[domain.Line](lines),
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: access.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return nil, err
	}

	obslogger.WithContext(ctx, s.log).Info("order created",
		zap.String("tenant_id", order.TenantID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(lines)),
	)
	return toResponse(order), nil
}

func (s *Service) Get(ctx context.Context, access authorization.Access, orderID string) (*domain.OrderResponse, error) {
	id, err := parseID(orderID)
	if err != nil {
		return nil, domain.ErrInvalidOrder
	}
	order, err := s.repo.Get(ctx, s.db, access.TenantID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return toResponse(*order), nil
}

func (s *Service) List(ctx context.Context, access authorization.Access, req domain.ListOrderRequest) (*domain.ListOrderResponse, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{
		TenantID: access.TenantID,
		Limit:    pagination.NormalizePageSize(req.PageSize, defaultPageSize, maxPageSize),
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		beforeID, err := parseID(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		filter.BeforeID = beforeID
	}

	orders, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	orders, pageInfo := pagination.Cut(orders, filter.Limit, func(order *domain.Order) string {
		return pagination.IDToken(order.ID.String())
	})

	resp := &domain.ListOrderResponse{Orders: make([]domain.OrderResponse, 0, len(orders)), PageInfo: pageInfo}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, *toResponse(*order))
	}
	return resp, nil
}

// Transition moves an order to the requested status. The order row, the item rows
// and their log entries are written in one transaction; any failure leaves all of
// them untouched.
func (s *Service) Transition(ctx context.Context, access authorization.Access, orderID string, req domain.TransitionRequest) (*domain.OrderResponse, error) {
	id, err := parseID(orderID)
	if err != nil {
		return nil, domain.ErrInvalidOrder
	}
	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var (
		result domain.Order
		plan   domain.Plan
	)
	err = s.guard.WithOrderLock(ctx, access.TenantID.String(), id.String(), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := rls.WithTenant(tx, access.TenantID); err != nil {
				return err
			}
			order, err := s.repo.Get(ctx, tx, access.TenantID, id)
			if err != nil {
				return err
			}
			if order == nil {
				return domain.ErrOrderNotFound
			}

			plan, err = domain.PlanTransition(order.Status, order.StockAdjusted, target)
			if err != nil {
				return err
			}
			if plan.Noop {
				result = *order
				return nil
			}

			readStatus := order.Status
			readAdjusted := order.StockAdjusted
			now := s.clock.Now()

			switch plan.Effect {
			case domain.EffectRemove:
				if err := s.applyLines(ctx, tx, access, order, -1, plan); err != nil {
					return err
				}
				order.StockAdjusted = true
				order.StockAdjustedAt = &now
			case domain.EffectRestore:
				if err := s.applyLines(ctx, tx, access, order, 1, plan); err != nil {
					return err
				}
				order.StockAdjusted = false
				order.StockRestoredAt = &now
			}

			switch target {
			case domain.StatusFulfilled:
				order.FulfilledAt = &now
			case domain.StatusCancelled:
				order.CancelledAt = &now
			}
			order.Status = target
			order.UpdatedAt = now

			ok, err := s.repo.UpdateLifecycle(ctx, tx, order, readStatus, readAdjusted)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrConcurrentTransition
			}
			result = *order
			return nil
		})
	})
	if err != nil {
		s.observeRejection(err)
		return nil, err
	}

	if !plan.Noop {
		s.obsMetrics.RecordOrderTransition(ctx, string(plan.From), string(plan.To))
		s.audit(ctx, access, result, plan)
		obslogger.WithContext(ctx, s.log).Info("order transitioned",
			zap.String("tenant_id", result.TenantID.String()),
			zap.String("order_id", result.ID.String()),
			zap.String("from", string(plan.From)),
			zap.String("to", string(plan.To)),
			zap.Bool("stock_adjusted", result.StockAdjusted),
		)
	}
	return toResponse(result), nil
}

// applyLines moves every order line through the ledger inside tx. sign is -1 to
// take stock and +1 to return it.
func (s *Service) applyLines(ctx context.Context, tx *gorm.DB, access authorization.Access, order *domain.Order, sign int64, plan domain.Plan) error {
	lines := make([]inventorydomain.BatchLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, inventorydomain.BatchLine{ItemID: line.ItemID, Delta: sign * line.Quantity})
	}
	orderID := order.ID
	_, err := s.ledger.WithTx(tx).ApplyBatch(ctx, inventorydomain.Batch{
		TenantID:    order.TenantID,
		Lines:       lines,
		Reason:      plan.Reason,
		ActorID:     access.UserID,
		OrderID:     &orderID,
		OrderStatus: string(plan.To),
	})
	return err
}

func (s *Service) observeRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrOrderClosed), errors.Is(err, domain.ErrInvalidTransition):
		s.ledgerMetrics.IncRejection("transition", obsmetrics.RejectInvalidTransition)
	case errors.Is(err, domain.ErrConcurrentTransition), errors.Is(err, locking.ErrBusy):
		s.ledgerMetrics.IncRejection("transition", obsmetrics.RejectConcurrentUpdate)
	}
}

func (s *Service) audit(ctx context.Context, access authorization.Access, order domain.Order, plan domain.Plan) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"from":           string(plan.From),
		"to":             string(plan.To),
		"stock_adjusted": order.StockAdjusted,
	}
	if plan.Reason != "" {
		metadata["stock_reason"] = plan.Reason
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		TenantID:   &order.TenantID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    access.UserID.String(),
		Action:     "order.transitioned",
		TargetType: "order",
		TargetID:   order.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to write order audit log", zap.Error(err))
	}
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

func toResponse(order domain.Order) *domain.OrderResponse {
	lines := make([]domain.LineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, domain.LineResponse{
			ItemID:   line.ItemID.String(),
			Quantity: line.Quantity,
			SKU:      line.SKU,
			Name:     line.Name,
		})
	}
	return &domain.OrderResponse{
		ID:              order.ID.String(),
		TenantID:        order.TenantID.String(),
		Status:          order.Status,
		Lines:           lines,
		Notes:           order.Notes,
		CreatedBy:       order.CreatedBy.String(),
		StockAdjusted:   order.StockAdjusted,
		StockAdjustedAt: order.StockAdjustedAt,
		StockRestoredAt: order.StockRestoredAt,
		FulfilledAt:     order.FulfilledAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
