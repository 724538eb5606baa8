package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	obslogger "github.com/smallbiznis/stockwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockwise/internal/observability/metrics"
	"github.com/smallbiznis/stockwise/internal/reorder/domain"
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

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Items         inventorydomain.Repository
	Policy        *config.InventoryConfigHolder `optional:"true"`
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
	policy        *config.InventoryConfigHolder
	obsMetrics    *obsmetrics.Metrics
	ledgerMetrics *obsmetrics.LedgerMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("reorder.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		items:         p.Items,
		policy:        p.Policy,
		obsMetrics:    p.ObsMetrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

// Sweep scans one page of low-stock items that have no requested or ordered request
// yet and opens an automatic request for each. It never touches stock or
// existing requests, so repeating it creates nothing new.
func (s *Service) Sweep(ctx context.Context, tenantID snowflake.ID, defaultQuantity int64, actorID snowflake.ID) (domain.SweepResult, error) {
	if tenantID == 0 {
		return domain.SweepResult{}, domain.ErrInvalidTenant
	}
	if actorID == 0 {
		return domain.SweepResult{}, domain.ErrInvalidActor
	}
	if defaultQuantity < 0 {
		return domain.SweepResult{}, domain.ErrInvalidQuantity
	}

	policy := s.policy.Get()
	quantity := defaultQuantity
	if quantity == 0 {
		quantity = policy.DefaultReorderQuantity
	}

	start := time.Now()
	var result domain.SweepResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, tenantID); err != nil {
			return err
		}
		items, err := s.repo.LowStockItems(ctx, tx, tenantID, policy.SweepPageSize)
		if err != nil {
			return err
		}
		result.Scanned = len(items)

		now := s.clock.Now()
		for _, item := range items {
			request := domain.ReorderRequest{
				ID:                s.genID.Generate(),
				TenantID:          tenantID,
				ItemID:            item.ID,
				VendorID:          item.VendorID,
				RequestedQuantity: quantity,
				Status:            domain.StatusRequested,
				Source:            domain.SourceAuto,
				CreatedBy:         actorID,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := s.repo.Insert(ctx, tx, &request); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		s.ledgerMetrics.IncFailure("sweep", err)
		return domain.SweepResult{}, err
	}

	s.ledgerMetrics.ObserveSweep(time.Since(start), result.Scanned, result.Created)
	s.obsMetrics.RecordReordersCreated(ctx, domain.SourceAuto, result.Created)
	obslogger.WithContext(ctx, s.log).Info("reorder sweep finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int64("requested_quantity", quantity),
	)
	return result, nil
}

func (s *Service) Create(ctx context.Context, access authorization.Access, req domain.CreateRequest) (*domain.Response, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	if req.RequestedQuantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var request domain.ReorderRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, access.TenantID); err != nil {
			return err
		}
		item, err := s.items.GetItem(ctx, tx, access.TenantID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		open, err := s.repo.OpenItemIDs(ctx, tx, access.TenantID, []snowflake.ID{itemID})
		if err != nil {
			return err
		}
		if _, ok := open[itemID]; ok {
			return domain.ErrOpenRequest
		}

		vendorID := normalizeOptional(req.VendorID)
		if vendorID == nil {
			vendorID = item.VendorID
		}
		now := s.clock.Now()
		request = domain.ReorderRequest{
			ID:                s.genID.Generate(),
			TenantID:          access.TenantID,
			ItemID:            itemID,
			VendorID:          vendorID,
			RequestedQuantity: req.RequestedQuantity,
			Status:            domain.StatusRequested,
			Source:            domain.SourceManual,
			Notes:             strings.TrimSpace(req.Notes),
			CreatedBy:         access.UserID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return s.repo.Insert(ctx, tx, &request)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReordersCreated(ctx, domain.SourceManual, 1)
	return toResponse(request), nil
}

func (s *Service) List(ctx context.Context, access authorization.Access, req domain.ListRequest) (*domain.ListResponse, error) {
	if access.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{
		TenantID: access.TenantID,
		Limit:    pagination.NormalizePageSize(req.PageSize, defaultPageSize, maxPageSize),
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := parseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.ItemID) != "" {
		itemID, err := parseID(req.ItemID)
		if err != nil {
			return nil, domain.ErrInvalidItem
		}
		filter.ItemID = &itemID
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

	requests, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	requests, pageInfo := pagination.Cut(requests, filter.Limit, func(request *domain.ReorderRequest) string {
		return pagination.IDToken(request.ID.String())
	})

	resp := &domain.ListResponse{Requests: make([]domain.Response, 0, len(requests)), PageInfo: pageInfo}
	for _, request := range requests {
		resp.Requests = append(resp.Requests, *toResponse(*request))
	}
	return resp, nil
}

func (s *Service) UpdateStatus(ctx context.Context, access authorization.Access, requestID string, req domain.UpdateStatusRequest) (*domain.Response, error) {
	id, err := parseID(requestID)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	target, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var request *domain.ReorderRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, access.TenantID); err != nil {
			return err
		}
		request, err = s.repo.Get(ctx, tx, access.TenantID, id)
		if err != nil {
			return err
		}
		if request == nil {
			return domain.ErrRequestNotFound
		}
		if !request.Status.Open() {
			return domain.ErrRequestClosed
		}
		if request.Status == target {
			return nil
		}
		if !domain.CanMoveTo(request.Status, target) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		ok, err := s.repo.UpdateStatus(ctx, tx, access.TenantID, id, request.Status, target, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		request.Status = target
		request.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toResponse(*request), nil
}

func parseStatus(value string) (domain.Status, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case domain.StatusRequested, domain.StatusOrdered, domain.StatusReceived, domain.StatusCancelled:
		return status, nil
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

func toResponse(request domain.ReorderRequest) *domain.Response {
	return &domain.Response{
		ID:                request.ID.String(),
		TenantID:          request.TenantID.String(),
		ItemID:            request.ItemID.String(),
		VendorID:          request.VendorID,
		RequestedQuantity: request.RequestedQuantity,
		Status:            request.Status,
		Source:            request.Source,
		Notes:             request.Notes,
		CreatedBy:         request.CreatedBy.String(),
		CreatedAt:         request.CreatedAt,
		UpdatedAt:         request.UpdatedAt,
	}
}
