package quotation

import (
	"github.com/smallbiznis/opsdesk/internal/quotation/repository"
	"github.com/smallbiznis/opsdesk/internal/quotation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quotation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
