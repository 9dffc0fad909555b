package auth

import (
	"github.com/roamkit/roamkit/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(
		service.New,
	),
)
