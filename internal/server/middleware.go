package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/stockwise/internal/authorization"
	obscontext "github.com/smallbiznis/stockwise/internal/observability/context"
	"github.com/smallbiznis/stockwise/pkg/tenantctx"
)

const (
	HeaderTenant        = "X-Tenant-ID"
	contextPrincipalKey = "principal"
	contextAccessKey    = "tenant_access"
)

// AuthRequired resolves the bearer token into a principal.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Principal(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(ActorUser), principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

// TenantContext resolves X-Tenant-ID against the principal and pins the tenant for the
// rest of the request.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		access, err := s.authzSvc.Resolve(c.Request.Context(), principal, c.GetHeader(HeaderTenant))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), access.TenantID)
		ctx = tenantctx.WithRole(ctx, access.Role)
		ctx = obscontext.WithTenantID(ctx, access.TenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAccessKey, access)
		c.Next()
	}
}

// RequireGlobalAdmin gates the tenant-less administration routes.
func (s *Server) RequireGlobalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if authorization.NormalizeRole(principal.GlobalRole) != authorization.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	return raw, raw != ""
}

func principalFromContext(c *gin.Context) (authorization.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authorization.Principal{}, false
	}
	principal, ok := value.(authorization.Principal)
	if !ok || principal.UserID == 0 {
		return authorization.Principal{}, false
	}
	return principal, true
}

func accessFromContext(c *gin.Context) (authorization.Access, bool) {
	value, ok := c.Get(contextAccessKey)
	if !ok {
		return authorization.Access{}, false
	}
	access, ok := value.(authorization.Access)
	if !ok || access.TenantID == 0 {
		return authorization.Access{}, false
	}
	return access, true
}
