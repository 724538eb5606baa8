package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	"github.com/smallbiznis/stockwise/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema and seeds the bootstrap tenant before the HTTP
// server starts accepting requests.
var Module = fx.Module("migration",
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, node *snowflake.Node, clk clock.Clock, log *zap.Logger) {
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		if err := Apply(conn); err != nil {
			return err
		}
		return seed.Bootstrap(ctx, conn, node, clk, cfg.Bootstrap, log.Named("seed"))
	}))
}
