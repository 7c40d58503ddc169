package app

import (
	"context"

	"go.trai.ch/cloudbuilder/internal/adapters/httpapi"
	"go.trai.ch/cloudbuilder/internal/adapters/relay"
	"go.trai.ch/cloudbuilder/internal/adapters/workspace"
	"go.trai.ch/cloudbuilder/internal/engine/registry"
	"go.trai.ch/cloudbuilder/internal/engine/runner"
	"go.trai.ch/zerr"
)

// JobsDirEnv names the environment variable that tells the build tool where job
// workspaces live.
const JobsDirEnv = "CLOUDBUILDER_JOBS_DIR"

// ServeWorker runs a worker node until ctx is cancelled.
func (a *App) ServeWorker(ctx context.Context, opts ServeOptions) error {
	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	store, err := workspace.NewStore(cfg.Worker.WorkspaceRoot)
	if err != nil {
		return zerr.Wrap(err, "failed to open workspace root")
	}

	reg := registry.New(store)
	a.metrics.TrackJobs(reg.Len)

	run := runner.New(
		reg,
		a.executor,
		a.tracer,
		a.metrics,
		cfg.Worker.ProjectRoot,
		cfg.Worker.Tool,
	).WithEnv([]string{JobsDirEnv + "=" + store.Root()})

	handler := httpapi.NewWorker(
		reg,
		a.packager,
		relay.NewServer(reg, run, a.metrics, a.logger),
		a.metrics.Handler(),
		a.logger,
	)
	return a.serve(ctx, "worker", cfg.Worker.Listen, handler)
}
