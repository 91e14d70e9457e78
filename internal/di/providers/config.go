// Package providers contains dependency injection providers for the community mapper.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/communitymapper/community-mapper/internal/config"
	"github.com/communitymapper/community-mapper/internal/logger"
)

// Args are the command-line flags handed to config.LoadConfig.
type Args []string

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(do.MustInvoke[Args](i))
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting community mapper",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.App.DataPath,
		"database", cfg.Database.Redacted(),
	)

	return log, nil
}
