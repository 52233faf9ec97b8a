package task

import (
	"github.com/smallbiznis/opsdesk/internal/task/repository"
	"github.com/smallbiznis/opsdesk/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
