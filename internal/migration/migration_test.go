package migration

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{
		"users", "sessions", "audit_logs", "categories", "exchange_rates", "pricing_sessions",
		"inquiries", "quotation_requests", "work_orders", "support_tickets", "call_logs",
		"cash_collections", "tasks",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	source, err := iofs.New(sub, ".")
	require.NoError(t, err)
	defer source.Close()

	version, err := source.First()
	require.NoError(t, err)
	count := 0
	for {
		count++
		up, _, err := source.ReadUp(version)
		require.NoError(t, err)
		up.Close()
		down, _, err := source.ReadDown(version)
		require.NoError(t, err)
		down.Close()

		next, err := source.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	assert.Equal(t, 3, count)
}

func TestAutoMigrateRequiresHandle(t *testing.T) {
	assert.Error(t, AutoMigrate(nil))
	assert.Error(t, RunMigrations(nil))
}
