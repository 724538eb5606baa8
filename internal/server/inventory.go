package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/pkg/db/pagination"
)

func (s *Server) CreateItem(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inventorydomain.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.Create(c.Request.Context(), access, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListItems(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		SKU    string `form:"sku"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lowStock, err := queryFlag(c, "low_stock")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.inventorySvc.List(c.Request.Context(), access, inventorydomain.ListItemRequest{
		Pagination: query.Pagination,
		SKU:        strings.TrimSpace(query.SKU),
		Status:     strings.TrimSpace(query.Status),
		LowStock:   lowStock,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetItem(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.inventorySvc.Get(c.Request.Context(), access, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateItem(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inventorydomain.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.Update(c.Request.Context(), access, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeleteItem(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	itemID := strings.TrimSpace(c.Param("id"))
	if err := s.inventorySvc.Delete(c.Request.Context(), access, itemID); err != nil {
		AbortWithError(c, err)
		return
	}

	tenantID := access.TenantID
	s.recordAudit(c, auditdomain.Entry{
		TenantID:   &tenantID,
		Action:     "inventory_item.deleted",
		TargetType: "inventory_item",
		TargetID:   itemID,
	})

	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// AdjustItem applies a signed stock change through the ledger.
func (s *Server) AdjustItem(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inventorydomain.AdjustItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.Adjust(c.Request.Context(), access, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListItemLogs(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.ListItemLogs(c.Request.Context(), access, strings.TrimSpace(c.Param("id")), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListInventoryLogs(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query inventorydomain.ListLogRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.ListLogs(c.Request.Context(), access, inventorydomain.ListLogRequest{
		Pagination: query.Pagination,
		Action:     strings.TrimSpace(query.Action),
		OrderID:    strings.TrimSpace(query.OrderID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
