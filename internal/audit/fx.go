package audit

import (
	"github.com/smallbiznis/stockwise/internal/audit/repository"
	"github.com/smallbiznis/stockwise/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the append-only audit trail.
var Module = fx.Module("audit",
	fx.Provide(repository.Provide, service.NewService),
)
