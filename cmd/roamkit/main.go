package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/roamkit/roamkit/internal/apikey"
	"github.com/roamkit/roamkit/internal/auth"
	"github.com/roamkit/roamkit/internal/cache"
	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/migration"
	"github.com/roamkit/roamkit/internal/observability"
	"github.com/roamkit/roamkit/internal/place"
	"github.com/roamkit/roamkit/internal/quota"
	"github.com/roamkit/roamkit/internal/ratelimit"
	"github.com/roamkit/roamkit/internal/server"
	"github.com/roamkit/roamkit/internal/subscription"
	"github.com/roamkit/roamkit/internal/tenant"
	"github.com/roamkit/roamkit/internal/usage"
	"github.com/roamkit/roamkit/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,

		tenant.Module,
		auth.Module,
		apikey.Module,
		subscription.Module,
		place.Module,
		usage.Module,
		quota.Module,
		cache.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
