package reorder

import (
	"github.com/smallbiznis/stockwise/internal/reorder/repository"
	"github.com/smallbiznis/stockwise/internal/reorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
