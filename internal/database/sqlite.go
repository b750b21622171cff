package database

import (
	"fmt"

	"github.com/quarrydirect/portal/internal/common/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewSQLite creates a new SQLite-backed Database using the pure-Go driver,
// so the server builds without cgo.
func NewSQLite(cfg *config.DatabaseConfig) (Database, error) {
	gormDB, err := gorm.Open(sqlite.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newORMDB(gormDB)
}
