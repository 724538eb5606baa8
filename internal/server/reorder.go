package server

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	"github.com/smallbiznis/stockwise/internal/locking"
	reorderdomain "github.com/smallbiznis/stockwise/internal/reorder/domain"
)

// SweepReorders raises automatic requests for every low-stock item of the tenant.
// The body is optional and is validated before the sweep budget is charged.
func (s *Server) SweepReorders(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reorderdomain.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	var defaultQuantity int64
	if req.DefaultRequestedQuantity != nil {
		defaultQuantity = *req.DefaultRequestedQuantity
		if defaultQuantity <= 0 {
			AbortWithError(c, newValidationError("defaultRequestedQuantity", "invalid_quantity", "must be positive"))
			return
		}
	}

	if err := s.guard.AllowSweep(c.Request.Context(), access.TenantID.String()); err != nil {
		var limited *locking.RateLimitedError
		if errors.As(err, &limited) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		AbortWithError(c, err)
		return
	}

	resp, err := s.reorderSvc.Sweep(c.Request.Context(), access.TenantID, defaultQuantity, access.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) CreateReorder(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reorderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reorderSvc.Create(c.Request.Context(), access, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListReorders(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query reorderdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Status = strings.TrimSpace(query.Status)
	query.ItemID = strings.TrimSpace(query.ItemID)

	resp, err := s.reorderSvc.List(c.Request.Context(), access, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateReorderStatus(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reorderdomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	requestID := strings.TrimSpace(c.Param("id"))
	resp, err := s.reorderSvc.UpdateStatus(c.Request.Context(), access, requestID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tenantID := access.TenantID
	s.recordAudit(c, auditdomain.Entry{
		TenantID:   &tenantID,
		Action:     "reorder_request.status_updated",
		TargetType: "reorder_request",
		TargetID:   requestID,
		Metadata:   map[string]any{"status": string(resp.Status)},
	})

	respond(c, http.StatusOK, resp)
}
