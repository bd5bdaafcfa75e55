package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/paynehq/payne/internal/migration"
	"github.com/paynehq/payne/internal/observability"
	"github.com/paynehq/payne/internal/scheduler"
	"github.com/paynehq/payne/internal/server"
	"github.com/paynehq/payne/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
