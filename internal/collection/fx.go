package collection

import (
	"github.com/smallbiznis/opsdesk/internal/collection/repository"
	"github.com/smallbiznis/opsdesk/internal/collection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("collection.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
