package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/capability"
	"github.com/roach88/leadflow/internal/compiler"
	"github.com/roach88/leadflow/internal/config"
	"github.com/roach88/leadflow/internal/engine"
	"github.com/roach88/leadflow/internal/store"
)

// AppOptions holds the per-command flags shared by every state-bearing
// command: where the database lives and where sequence definitions come
// from. Empty values defer to the environment configuration.
type AppOptions struct {
	DB    string
	Specs string
}

// AddFlags registers the shared flags on a command.
func (o *AppOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.DB, "db", "", "SQLite database path (default from LEADFLOW_DB; empty for in-memory)")
	cmd.Flags().StringVar(&o.Specs, "specs", "", "sequence definitions directory (default from LEADFLOW_SPECS)")
}

// App bundles the wired engine stack for one command invocation.
type App struct {
	Config   config.Config
	Store    store.StateStore
	Registry *engine.Registry
	Engine   *engine.Engine
}

// Close releases the app's store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// openApp loads configuration, compiles the sequence directory, opens
// the state store, and wires the engine. Flag values override the
// environment.
func openApp(rootOpts *RootOptions, appOpts *AppOptions, cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if appOpts.DB != "" {
		cfg.DBPath = appOpts.DB
	}
	if appOpts.Specs != "" {
		cfg.SpecsDir = appOpts.Specs
	}

	loaded, err := LoadSequences(cfg.SpecsDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load sequences", err)
	}
	if err := compiler.ValidateAll(loaded.Definitions); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid sequences", err)
	}

	registry := engine.NewRegistry(loaded.Definitions...)
	if cfg.DefaultSequence != "" {
		if _, ok := registry.Definition(cfg.DefaultSequence); !ok {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("default sequence %q not found in %s", cfg.DefaultSequence, cfg.SpecsDir))
		}
		registry.SetDefaultSequence(cfg.DefaultSequence)
	}

	var st store.StateStore
	if cfg.DBPath == "" {
		st = store.NewMemoryStore()
	} else {
		st, err = store.Open(cfg.DBPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open state store", err)
		}
	}

	logger := newLogger(rootOpts, cmd)
	eng := engine.New(registry, st, capability.NewLocal(logger),
		engine.WithLogger(logger),
		engine.WithRetryConfig(engine.RetryConfig{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  cfg.InitialDelay,
			BackoffFactor: cfg.BackoffFactor,
			MaxDelay:      cfg.MaxDelay,
		}),
		engine.WithActionTimeout(cfg.ActionTimeout),
		engine.WithSimplifiedFallback(cfg.SimplifiedFallback),
	)

	return &App{Config: cfg, Store: st, Registry: registry, Engine: eng}, nil
}
