package app

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/cloudbuilder/internal/adapters/chainstore"
	"go.trai.ch/cloudbuilder/internal/adapters/httpapi"
	"go.trai.ch/cloudbuilder/internal/adapters/workerclient"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/engine/chain"
	"go.trai.ch/zerr"
)

// ServeOrchestrator runs the orchestrator node until ctx is cancelled.
func (a *App) ServeOrchestrator(ctx context.Context, opts ServeOptions) error {
	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateOrchestrator(); err != nil {
		return err
	}

	store, err := chainstore.NewStore(cfg.Orchestrator.StorageRoot)
	if err != nil {
		return zerr.Wrap(err, "failed to open chain storage")
	}

	workers := make(map[string]ports.WorkerClient, len(cfg.Orchestrator.Targets))
	for name, url := range cfg.Orchestrator.Targets {
		workers[name] = workerclient.New(url, a.httpClient)
	}

	chains := chain.New(workers, store, a.tracer, a.metrics, a.logger)
	a.logger.Info(fmt.Sprintf("serving targets %s", strings.Join(chains.Targets(), ", ")))

	handler := httpapi.NewOrchestrator(chains, a.metrics.Handler(), a.logger)
	return a.serve(ctx, "orchestrator", cfg.Orchestrator.Listen, handler)
}
