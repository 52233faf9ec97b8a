package pricing

import (
	"github.com/smallbiznis/opsdesk/internal/pricing/repository"
	"github.com/smallbiznis/opsdesk/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
