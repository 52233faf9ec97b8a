package inquiry

import (
	"github.com/smallbiznis/opsdesk/internal/inquiry/repository"
	"github.com/smallbiznis/opsdesk/internal/inquiry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inquiry.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
