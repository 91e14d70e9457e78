package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
	"github.com/communitymapper/community-mapper/internal/store"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
	"github.com/communitymapper/community-mapper/internal/validation"
)

// PoolHandle wraps the connection pool with shutdown capability.
type PoolHandle struct {
	*store.Pool
}

// Shutdown implements do.Shutdownable.
func (h *PoolHandle) Shutdown() error {
	return h.Close()
}

// ProvidePool provides the lazily opened connection pool. Nothing is
// dialed until the first query.
func ProvidePool(i do.Injector) (*PoolHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Database.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	dialect := store.Dialect(cfg.Database.Driver)
	pool := store.NewPool(store.PoolConfig{
		Dialect:         dialect,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		QueryTimeout:    cfg.Database.QueryTimeout,
		Schema:          sqlstore.Schema(dialect),
	}, log.Logger)

	log.Info("Database pool configured",
		"driver", cfg.Database.Driver,
		"dsn", cfg.Database.Redacted(),
		"max_open_conns", cfg.Database.MaxOpenConns,
	)

	return &PoolHandle{Pool: pool}, nil
}

// ProvideStore provides the SQL repositories.
func ProvideStore(i do.Injector) (*sqlstore.Store, error) {
	poolHandle := do.MustInvoke[*PoolHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return sqlstore.New(poolHandle.Pool, log.Logger), nil
}

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
