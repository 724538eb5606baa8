package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	"github.com/smallbiznis/stockwise/internal/migration"
	"github.com/smallbiznis/stockwise/internal/observability"
	"github.com/smallbiznis/stockwise/internal/server"
	"github.com/smallbiznis/stockwise/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		fx.Provide(newIDNode),
		migration.Module,
		server.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	).Run()
}

// newIDNode builds the snowflake generator. Each replica needs its own NODE_ID.
func newIDNode(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
