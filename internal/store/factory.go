package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/logging"
	"github.com/dispatchsim/engine/internal/store/memory"
	sqlitestore "github.com/dispatchsim/engine/internal/store/sqlite"
)

// NewBackend creates a position store backend based on configuration.
// The db argument is only used by the sqlite backend; pass nil to let
// it open its own in-memory database.
func NewBackend(cfg config.StorageConfig, db *gorm.DB, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlitestore.New(cfg.SQLite, db, logManager), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
