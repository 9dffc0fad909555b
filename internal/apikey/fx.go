package apikey

import (
	"github.com/roamkit/roamkit/internal/apikey/repository"
	"github.com/roamkit/roamkit/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
