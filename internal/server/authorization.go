package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/stockwise/internal/authorization"
)

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

func (s *Server) authorizeTenantAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeTenantActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeTenantActionWithContext(c *gin.Context, object string, action string) error {
	access, ok := accessFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), access, object, action)
}

// tenantAccess is the handler-side view of the resolved access; middleware guarantees it.
func tenantAccess(c *gin.Context) (authorization.Access, error) {
	access, ok := accessFromContext(c)
	if !ok {
		return authorization.Access{}, ErrUnauthorized
	}
	return access, nil
}
