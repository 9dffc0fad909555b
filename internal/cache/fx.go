package cache

import (
	"time"

	"github.com/roamkit/roamkit/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("cache",
	fx.Provide(NewResponseCache),
	fx.Invoke(startSweeper),
)

func startSweeper(lc fx.Lifecycle, cfg config.Config, cache *ResponseCache) {
	cache.StartSweeper(lc, time.Duration(cfg.Cache.SweepSeconds)*time.Second)
}
