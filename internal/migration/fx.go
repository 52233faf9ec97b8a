package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/opsdesk/internal/seed"
	"github.com/smallbiznis/opsdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger, p seed.Params) error {
		log = log.Named("migration")

		switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
		case db.TypePostgres, "":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		default:
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}
		log.Info("schema up to date", zap.String("type", cfg.Type))

		return seed.Run(context.Background(), p)
	}),
)
