package auth

import (
	"github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/auth/repository"
	"github.com/smallbiznis/stockwise/internal/auth/service"
	"github.com/smallbiznis/stockwise/internal/auth/token"
	"go.uber.org/fx"
)

// Module provides bearer token verification and the user service.
var Module = fx.Module("auth",
	fx.Provide(
		repository.New,
		service.New,
		fx.Annotate(token.NewVerifier, fx.As(new(domain.TokenVerifier))),
	),
)
