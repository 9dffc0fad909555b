package subscription

import (
	"github.com/roamkit/roamkit/internal/subscription/repository"
	"github.com/roamkit/roamkit/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
