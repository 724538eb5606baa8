package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
)

type createTenantRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateTenant(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.Create(c.Request.Context(), principal, tenantdomain.CreateTenantRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListTenants(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.tenantSvc.List(c.Request.Context(), principal)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Role:     strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     "user.create",
		TargetType: "user",
		TargetID:   resp.ID,
		Metadata:   map[string]any{"role": resp.Role},
	})

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListMembers(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tenantSvc.ListMembers(c.Request.Context(), access)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type upsertMemberRequest struct {
	Role string `json:"role"`
}

func (s *Server) UpsertMember(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req upsertMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.UpsertMember(c.Request.Context(), access, strings.TrimSpace(c.Param("userId")), req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) RemoveMember(c *gin.Context) {
	access, err := tenantAccess(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.tenantSvc.RemoveMember(c.Request.Context(), access, strings.TrimSpace(c.Param("userId"))); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"removed": true})
}
