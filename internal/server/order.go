package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/stockwise/internal/locking"
	orderdomain "github.com/smallbiznis/stockwise/internal/order/domain"
)

func (s *Server) CreateOrder(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), access, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListOrders(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query orderdomain.ListOrderRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Status = strings.TrimSpace(query.Status)

	resp, err := s.orderSvc.List(c.Request.Context(), access, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetOrder(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.Get(c.Request.Context(), access, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

// TransitionOrder moves an order through its lifecycle, adjusting stock at most once.
func (s *Server) TransitionOrder(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req orderdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Transition(c.Request.Context(), access, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		if errors.Is(err, locking.ErrBusy) {
			c.Header("Retry-After", "1")
		}
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
