package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/intake"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/pipeline"
	"github.com/sells-group/leadscore/internal/store"
)

// pipelineEnv holds the lookup tables, orchestrator and store needed by the
// run/serve/report commands.
type pipelineEnv struct {
	Tables       *lookup.Tables
	Orchestrator *pipeline.Orchestrator
	Store        store.Store
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates configuration for mode, loads the lookup tables,
// opens the store and builds the orchestrator. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	tables, err := lookup.Load(cfg.Lookup.TablesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load lookup tables")
	}

	orch, err := pipeline.New(cfg, tables)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	zap.L().Debug("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Int("workers", cfg.Pipeline.Workers),
	)
	return &pipelineEnv{Tables: tables, Orchestrator: orch, Store: st}, nil
}

// readInput decodes a dataset file using the configured intake limits.
func readInput(ctx context.Context, path string, sheet int) (model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Dataset{}, eris.Wrapf(err, "open input %s", path)
	}
	defer f.Close() //nolint:errcheck

	opts := intake.OptionsFromConfig(cfg.Intake)
	opts.Sheet = sheet
	return intake.Read(ctx, path, f, opts)
}
