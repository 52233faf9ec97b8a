package ticket

import (
	"github.com/smallbiznis/opsdesk/internal/ticket/repository"
	"github.com/smallbiznis/opsdesk/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
