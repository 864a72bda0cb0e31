package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

// Open connects to the configured database and runs migrations.
// driver is "sqlite" (default, DSN is a file path) or "mysql" (DSN is a
// go-sql-driver DSN; parseTime=true is required for time columns).
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(&models.Integration{}, &models.CredentialConfig{}); err != nil {
		return nil, err
	}
	return gdb, nil
}
