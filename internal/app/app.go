// Package app implements the application layer for cloudbuilder.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.trai.ch/cloudbuilder/internal/adapters/metrics"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	packager     ports.Packager
	tracer       ports.Tracer
	metrics      *metrics.Recorder
	logger       ports.Logger
	httpClient   *http.Client
	out          io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	packager ports.Packager,
	tracer ports.Tracer,
	recorder *metrics.Recorder,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		packager:     packager,
		tracer:       tracer,
		metrics:      recorder,
		logger:       log,
		httpClient:   &http.Client{},
		out:          os.Stdout,
	}
}

// WithOutput redirects the progress output of Build and Fetch.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// WithHTTPClient replaces the client used to reach workers and the orchestrator.
func (a *App) WithHTTPClient(c *http.Client) *App {
	a.httpClient = c
	return a
}

// ServeOptions configuration for ServeWorker and ServeOrchestrator.
type ServeOptions struct {
	// ConfigPath selects the configuration file. Empty means cloudbuilder.yaml.
	ConfigPath string
}

func (a *App) loadConfig(path string) (*domain.Config, error) {
	cfg, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if j, ok := a.logger.(interface{ SetJSON(enable bool) }); ok && cfg.Log.JSON {
		j.SetJSON(true)
	}
	return cfg, nil
}

// serve runs handler on addr until ctx is cancelled. Requests inherit ctx, so
// open build and relay sessions are torn down together with the listener.
func (a *App) serve(ctx context.Context, role, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	a.logger.Info(fmt.Sprintf("%s listening on %s", role, ln.Addr()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, "server stopped")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logger.Info(role + " stopped")
	return err
}
