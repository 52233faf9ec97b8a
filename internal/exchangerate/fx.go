package exchangerate

import (
	"github.com/smallbiznis/opsdesk/internal/exchangerate/repository"
	"github.com/smallbiznis/opsdesk/internal/exchangerate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exchangerate.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
