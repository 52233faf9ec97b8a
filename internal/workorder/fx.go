package workorder

import (
	"github.com/smallbiznis/opsdesk/internal/workorder/repository"
	"github.com/smallbiznis/opsdesk/internal/workorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workorder.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
