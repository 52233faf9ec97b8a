package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	taskdomain "github.com/smallbiznis/opsdesk/internal/task/domain"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the application, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&auditdomain.AuditLog{},
		&categorydomain.Category{},
		&exchangeratedomain.ExchangeRate{},
		&pricingdomain.Session{},
		&inquirydomain.Inquiry{},
		&quotationdomain.Quotation{},
		&workorderdomain.WorkOrder{},
		&ticketdomain.Ticket{},
		&calllogdomain.CallLog{},
		&collectiondomain.Collection{},
		&taskdomain.Task{},
	}
}

// RunMigrations applies the embedded SQL migrations to a Postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the models. SQLite and MySQL use this
// path since the SQL files are written for Postgres.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
