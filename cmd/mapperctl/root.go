package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/communitymapper/community-mapper/internal/di"
)

// globalFlags are forwarded to the configuration loader.
type globalFlags struct {
	envFile  string
	dataPath string
	dbDriver string
	dbPath   string
	logLevel string
}

func (g *globalFlags) args() []string {
	args := []string{"-env-file", g.envFile, "-log-level", g.logLevel}
	if g.dataPath != "" {
		args = append(args, "-data-path", g.dataPath)
	}
	if g.dbDriver != "" {
		args = append(args, "-db-driver", g.dbDriver)
	}
	if g.dbPath != "" {
		args = append(args, "-db-path", g.dbPath)
	}
	return args
}

// withContainer builds the container for one command and shuts it down after.
func (g *globalFlags) withContainer(fn func(injector do.Injector) error) error {
	injector := di.NewContainer(g.args())
	defer func() { _ = injector.Shutdown() }()
	return fn(injector)
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "mapperctl",
		Short:         "Administer a community mapper installation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Path to .env file")
	cmd.PersistentFlags().StringVar(&g.dataPath, "data-path", "", "Directory for local state")
	cmd.PersistentFlags().StringVar(&g.dbDriver, "db-driver", "", "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db-path", "", "SQLite database file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCommand(g))
	cmd.AddCommand(newUserCommand(g))
	cmd.AddCommand(newExportCommand(g))
	cmd.AddCommand(newReindexCommand(g))
	cmd.AddCommand(newSessionsCommand(g))
	cmd.AddCommand(newSeedCommand(g))

	return cmd
}
