// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/config"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
)

// GlobalFlags holds the persistent flags of the root command.
type GlobalFlags struct {
	ConfigFile string
	Debug      bool
}

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Logger logger.Interface
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads the configuration and builds the logger.
// --debug forces debug level and development output.
func NewCommandDeps(flags *GlobalFlags) (CommandDeps, error) {
	if flags == nil {
		flags = &GlobalFlags{}
	}

	v, err := config.NewViper(flags.ConfigFile)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.Debug || cfg.App.Debug {
		cfg.App.Debug = true
		cfg.Logger.Level = logger.DebugLevel
		cfg.Logger.Development = true
		cfg.Logger.Encoding = logger.EncodingConsole
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to create logger: %w", err)
	}

	deps := CommandDeps{
		Logger: log.With("service", "techcrawler", "version", cfg.App.Version),
		Config: cfg,
	}
	return deps, deps.Validate()
}
