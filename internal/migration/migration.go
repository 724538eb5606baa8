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
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/stockwise/internal/order/domain"
	reorderdomain "github.com/smallbiznis/stockwise/internal/reorder/domain"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&tenantdomain.Tenant{},
		&tenantdomain.TenantMember{},
		&inventorydomain.InventoryItem{},
		&inventorydomain.LogEntry{},
		&orderdomain.Order{},
		&reorderdomain.ReorderRequest{},
		&auditdomain.AuditLog{},
	}
}

// Apply brings the schema up to date. PostgreSQL runs the embedded SQL migrations,
// other dialects are migrated from the gorm models.
func Apply(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

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
	// migrator.Close would close the shared *sql.DB

	return nil
}
