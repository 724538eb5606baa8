package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/stockwise/internal/audit"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/internal/auth"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/config"
	"github.com/smallbiznis/stockwise/internal/inventory"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/internal/locking"
	"github.com/smallbiznis/stockwise/internal/observability"
	obsmiddleware "github.com/smallbiznis/stockwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockwise/internal/observability/metrics"
	obstracing "github.com/smallbiznis/stockwise/internal/observability/tracing"
	"github.com/smallbiznis/stockwise/internal/order"
	orderdomain "github.com/smallbiznis/stockwise/internal/order/domain"
	"github.com/smallbiznis/stockwise/internal/reorder"
	reorderdomain "github.com/smallbiznis/stockwise/internal/reorder/domain"
	"github.com/smallbiznis/stockwise/internal/tenant"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	tenant.Module,
	inventory.Module,
	order.Module,
	reorder.Module,
	locking.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	tenantSvc    tenantdomain.Service
	inventorySvc inventorydomain.Service
	orderSvc     orderdomain.Service
	reorderSvc   reorderdomain.Service
	guard        *locking.Guard
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	TenantSvc    tenantdomain.Service
	InventorySvc inventorydomain.Service
	OrderSvc     orderdomain.Service
	ReorderSvc   reorderdomain.Service
	Guard        *locking.Guard `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		tenantSvc:    p.TenantSvc,
		inventorySvc: p.InventorySvc,
		orderSvc:     p.OrderSvc,
		reorderSvc:   p.ReorderSvc,
		guard:        p.Guard,
	}

	svc.registerAdminRoutes()
	svc.registerTenantRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// recordAudit writes an audit entry after a successful mutation. A failed write
// does not fail the request.
func (s *Server) recordAudit(c *gin.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	ctx := c.Request.Context()
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		obsmiddleware.WithContext(ctx, s.log).Warn("failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

// registerAdminRoutes covers routes that act outside of a single tenant.
func (s *Server) registerAdminRoutes() {
	s.engine.GET("/tenants", s.AuthRequired(), s.ListTenants)
	s.engine.POST("/tenants", s.AuthRequired(), s.RequireGlobalAdmin(), s.CreateTenant)
	s.engine.POST("/users", s.AuthRequired(), s.RequireGlobalAdmin(), s.CreateUser)
}

func (s *Server) registerTenantRoutes() {
	api := s.engine.Group("/")
	api.Use(s.AuthRequired())
	api.Use(s.TenantContext())

	// -------- Members --------
	api.GET("/members", s.authorizeTenantAction(authorization.ObjectMember, authorization.ActionMemberView), s.ListMembers)
	api.PUT("/members/:userId", s.authorizeTenantAction(authorization.ObjectMember, authorization.ActionMemberManage), s.UpsertMember)
	api.DELETE("/members/:userId", s.authorizeTenantAction(authorization.ObjectMember, authorization.ActionMemberManage), s.RemoveMember)

	// -------- Inventory --------
	api.GET("/inventory/items", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListItems)
	api.POST("/inventory/items", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryCreate), s.CreateItem)
	api.GET("/inventory/items/:id", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryView), s.GetItem)
	api.PATCH("/inventory/items/:id", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryUpdate), s.UpdateItem)
	api.DELETE("/inventory/items/:id", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryDelete), s.DeleteItem)
	api.POST("/inventory/items/:id/adjust", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryAdjust), s.AdjustItem)
	api.GET("/inventory/items/:id/logs", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListItemLogs)
	api.GET("/inventory/logs", s.authorizeTenantAction(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListInventoryLogs)

	// -------- Orders --------
	api.GET("/orders", s.authorizeTenantAction(authorization.ObjectOrder, authorization.ActionOrderView), s.ListOrders)
	api.POST("/orders", s.authorizeTenantAction(authorization.ObjectOrder, authorization.ActionOrderCreate), s.CreateOrder)
	api.GET("/orders/:id", s.authorizeTenantAction(authorization.ObjectOrder, authorization.ActionOrderView), s.GetOrder)
	api.PATCH("/orders/:id/status", s.authorizeTenantAction(authorization.ObjectOrder, authorization.ActionOrderTransition), s.TransitionOrder)

	// -------- Reorders --------
	api.GET("/reorders", s.authorizeTenantAction(authorization.ObjectReorder, authorization.ActionReorderView), s.ListReorders)
	api.POST("/reorders", s.authorizeTenantAction(authorization.ObjectReorder, authorization.ActionReorderCreate), s.CreateReorder)
	api.POST("/reorders/auto", s.authorizeTenantAction(authorization.ObjectReorder, authorization.ActionReorderSweep), s.SweepReorders)
	api.PATCH("/reorders/:id/status", s.authorizeTenantAction(authorization.ObjectReorder, authorization.ActionReorderUpdate), s.UpdateReorderStatus)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeTenantAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
