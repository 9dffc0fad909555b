package place

import (
	"github.com/roamkit/roamkit/internal/place/repository"
	"github.com/roamkit/roamkit/internal/place/service"
	"go.uber.org/fx"
)

var Module = fx.Module("place.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
