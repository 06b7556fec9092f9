package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/core"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
)

// globalOptions are the persistent flags of the root command.
type globalOptions struct {
	verbose   bool
	logFile   string
	jsonLogs  bool
	store     string
	outputDir string
}

// app holds what the subcommands share.
type app struct {
	opts globalOptions

	cfg      *common.Config
	logger   *slog.Logger
	closeLog func() error
	store    repository.DatasetStore

	loadConfig func() *common.Config
	deps       core.Deps // collaborator overrides, zero in production
}

func newApp() *app {
	return &app{loadConfig: common.LoadConfig}
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(console io.Writer) error {
	cfg := a.loadConfig()
	if a.opts.store != "" {
		cfg.Storage.Kind = strings.ToLower(a.opts.store)
	}
	if a.opts.outputDir != "" {
		cfg.Storage.OutputDir = a.opts.outputDir
	}
	if a.opts.logFile != "" {
		cfg.Log.File = a.opts.logFile
	}
	if a.opts.jsonLogs {
		cfg.Log.JSON = true
	}
	if a.opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}

	logger, closeLog, err := common.NewLogger(cfg.Log, console)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.closeLog = cfg, logger, closeLog
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.closeLog != nil {
		if cerr := a.closeLog(); err == nil {
			err = cerr
		}
		a.closeLog = nil
	}
	return err
}

func (a *app) openStore(ctx context.Context) (repository.DatasetStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := repository.Open(ctx, *a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// controller assembles the extraction pipeline over the configured store.
func (a *app) controller(ctx context.Context) (*pipeline.Controller, error) {
	if err := a.cfg.Validate(true); err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewProcessor(a.cfg, store, a.deps, a.logger)
}

// savedAt describes where a property's dataset lives, for messages.
func (a *app) savedAt(propertyID string) string {
	if fs, ok := a.store.(interface{ DatasetPath(string) string }); ok {
		return fs.DatasetPath(propertyID)
	}
	return a.cfg.Storage.Kind + " store"
}
