package usage

import (
	"github.com/roamkit/roamkit/internal/usage/repository"
	"github.com/roamkit/roamkit/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
