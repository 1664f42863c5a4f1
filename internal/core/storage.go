package core

import (
	"fmt"
	"os"

	"kincore/internal/infra/persistence/memory"
	"kincore/internal/infra/persistence/postgres"
	"kincore/internal/infra/persistence/sqlite"
	"kincore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset. A nil engine uses NewDefaultCheckEngine.
//
//	KINCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	KINCORE_SQLITE_PATH: path to sqlite file (default ./kincore.db)
//	KINCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *domain.CheckEngine) (domain.PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultCheckEngine()
	}
	driver := os.Getenv("KINCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenStorage(StorageDriver(driver), os.Getenv("KINCORE_SQLITE_PATH"), os.Getenv("KINCORE_POSTGRES_DSN"), engine)
}

// OpenStorage opens the named backend. path applies to sqlite, dsn to postgres.
func OpenStorage(driver StorageDriver, path, dsn string, engine *domain.CheckEngine) (domain.PersistentStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
