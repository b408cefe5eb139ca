package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/doxetl/internal/config"
	"github.com/roach88/doxetl/internal/definitions"
	"github.com/roach88/doxetl/internal/dialect"
	"github.com/roach88/doxetl/internal/logging"
	"github.com/roach88/doxetl/internal/queries"
	"github.com/roach88/doxetl/internal/store"
)

// App is everything built at startup: config, logger, registries and
// resolver. Nothing in it changes afterwards.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Defs     *definitions.Registry
	Queries  map[string]queries.Queries
	Resolver *dialect.Resolver

	logCloser io.Closer
}

// buildApp loads the config and builds every registry, failing on the first
// broken stage. Failures are written through f.
func buildApp(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*App, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load env file", err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		code := ExitCommandError
		if config.IsValidation(err) {
			code = ExitFailure
		}
		return nil, f.Fail(code, ErrCodeConfig, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:   level,
		Format:  cfg.Log.Format,
		Output:  cmd.ErrOrStderr(),
		File:    cfg.Log.File,
		AppName: cfg.AppName,
	})
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to set up logging", err)
	}
	app := &App{Config: cfg, Logger: logger, logCloser: closer}

	f.VerboseLog("Loading definitions from %s", cfg.DefinitionsFile)
	app.Defs, err = definitions.LoadFile(cfg.DefinitionsFile)
	if err != nil {
		app.Close()
		return nil, f.Fail(ExitFailure, ErrCodeDefinitions, "invalid definitions", err)
	}

	f.VerboseLog("Loading queries from %s (root %s)", cfg.QueriesFile, cfg.QueriesRoot)
	app.Queries, err = queries.LoadFile(cfg.QueriesFile, cfg.QueriesRoot)
	if err != nil {
		app.Close()
		return nil, f.Fail(ExitFailure, ErrCodeQueries, "invalid queries", err)
	}

	if err := cfg.ValidateStepQueries(app.Defs, slices.Sorted(maps.Keys(app.Queries))); err != nil {
		app.Close()
		return nil, f.Fail(ExitFailure, ErrCodeConfig, "invalid step_queries", err)
	}

	app.Resolver, err = dialect.NewResolver(configuredTypes(cfg), dialect.DefaultRules(), dialect.Dialects())
	if err != nil {
		app.Close()
		return nil, f.Fail(ExitFailure, ErrCodeDialect, "failed to resolve dialects", err)
	}
	for _, desc := range cfg.Descriptors() {
		if _, err := app.Resolver.ConnectionString(desc); err != nil {
			app.Close()
			return nil, f.Fail(ExitFailure, ErrCodeDialect, fmt.Sprintf("database %q", desc.Name), err)
		}
	}

	logger.Debug("startup complete",
		"phases", len(app.Defs.Phases()),
		"steps", len(app.Defs.Steps()),
		"pipelines", len(app.Queries),
		"databases", len(cfg.Descriptors()),
	)
	return app, nil
}

// configuredTypes lists the distinct database types in the config.
func configuredTypes(cfg *config.Config) []dialect.DatabaseType {
	var types []dialect.DatabaseType
	for _, d := range cfg.Descriptors() {
		if !slices.Contains(types, d.Type) {
			types = append(types, d.Type)
		}
	}
	return types
}

// OpenStore opens the audit store.
func (a *App) OpenStore(ctx context.Context) (*store.Store, error) {
	a.Logger.Debug("opening audit store", "type", a.Config.AuditDB.Type, "database", a.Config.AuditDB.Database)
	return store.Open(ctx, a.Config.AuditDB, a.Resolver)
}

// Close releases the log file.
func (a *App) Close() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

func closeStore(log *slog.Logger, st *store.Store) {
	if err := st.Close(); err != nil {
		log.Error("error closing audit store", "error", err)
	}
}
