package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/cloudbuilder/internal/adapters/archive"
	"go.trai.ch/cloudbuilder/internal/adapters/metrics"
	"go.trai.ch/cloudbuilder/internal/adapters/telemetry"
	"go.trai.ch/cloudbuilder/internal/app"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newComponents(ctrl *gomock.Controller, loader ports.ConfigLoader, log ports.Logger) ComponentProvider {
	application := app.New(
		loader,
		mocks.NewMockExecutor(ctrl),
		archive.NewPackager(),
		telemetry.NewNoOpTracer(),
		metrics.NewRecorder(nil),
		log,
	)
	return func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := newComponents(ctrl, mocks.NewMockConfigLoader(ctrl), mocks.NewMockLogger(ctrl))

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that command errors are logged and exit with 1.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("missing.yaml").Return(nil, domain.ErrConfigReadFailed)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigReadFailed)
	})

	exitCode := run(context.Background(), []string{"worker", "-c", "missing.yaml"}, new(bytes.Buffer), newComponents(ctrl, loader, log))
	assert.Equal(t, 1, exitCode)
}

// TestRun_OptionsApplied verifies that options see the App before the command runs.
func TestRun_OptionsApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any())

	var out bytes.Buffer
	fragment := filepath.Join(t.TempDir(), "missing.mk")
	exitCode := run(context.Background(),
		[]string{"build", "--fragment", fragment, "-t", "modduo"},
		new(bytes.Buffer),
		newComponents(ctrl, mocks.NewMockConfigLoader(ctrl), log),
		func(a *app.App) { a.WithOutput(&out) },
	)
	assert.Equal(t, 1, exitCode)
	assert.Empty(t, out.String())
}

// TestRun_Signal verifies that a cancelled context stops a serving node.
func TestRun_Signal(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("").Return(&domain.Config{Worker: domain.WorkerConfig{
		Listen:        "127.0.0.1:0",
		WorkspaceRoot: t.TempDir(),
		ProjectRoot:   t.TempDir(),
		Tool:          []string{"true"},
	}}, nil)

	listening := make(chan struct{})
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		if msg != "worker stopped" {
			close(listening)
		}
	}).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	exit := make(chan int, 1)
	go func() {
		exit <- run(ctx, []string{"worker"}, new(bytes.Buffer), newComponents(ctrl, loader, log))
	}()

	select {
	case <-listening:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}
	cancel()

	select {
	case code := <-exit:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
