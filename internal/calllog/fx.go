package calllog

import (
	"github.com/smallbiznis/opsdesk/internal/calllog/repository"
	"github.com/smallbiznis/opsdesk/internal/calllog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calllog.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
