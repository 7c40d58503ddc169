package runner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cloudbuilder/internal/adapters/shell"
	"go.trai.ch/cloudbuilder/internal/adapters/telemetry"
	"go.trai.ch/cloudbuilder/internal/adapters/workspace"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/core/ports/mocks"
	"go.trai.ch/cloudbuilder/internal/engine/registry"
	"go.trai.ch/cloudbuilder/internal/engine/runner"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *recorder) onMessage(msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) snapshot() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.msgs...)
}

type fixture struct {
	reg     *registry.Registry
	runner  *runner.Runner
	metrics *mocks.MockMetrics
	job     *domain.Job
}

// newFixture registers one job and wires a runner executing script through sh.
// The job id is passed to the script as $1.
func newFixture(t *testing.T, script string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	metrics := mocks.NewMockMetrics(ctrl)

	store, err := workspace.NewStore(t.TempDir())
	require.NoError(t, err)
	reg := registry.New(store)

	desc, err := domain.ParseDescriptor("FOO_BUNDLES = foo.lv2", map[string]string{"main.c": ""})
	require.NoError(t, err)
	job, err := reg.Create(context.Background(), desc)
	require.NoError(t, err)

	r := runner.New(
		reg,
		shell.NewExecutor(log),
		telemetry.NewNoOpTracer(),
		metrics,
		t.TempDir(),
		[]string{"sh", "-c", script, "sh"},
	)
	return &fixture{reg: reg, runner: r, metrics: metrics, job: job}
}

func TestRunner_Success(t *testing.T) {
	f := newFixture(t, `echo one; echo two; echo "target $1"`)
	f.metrics.EXPECT().ObserveBuild("success", gomock.Any())

	rec := &recorder{}
	outcome, err := f.runner.Run(context.Background(), f.job.ID, rec.onMessage)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, outcome)

	// N tool lines, then the success line and the completion.
	assert.Equal(t, []domain.Message{
		domain.Log("one"),
		domain.Log("two"),
		domain.Log("target " + f.job.ID),
		domain.Log("Build completed successfully."),
		domain.Complete(),
	}, rec.snapshot())

	state, err := f.reg.State(f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTerminated, state)
}

func TestRunner_Failure(t *testing.T) {
	f := newFixture(t, `echo compiling; echo "--- END ---"; exit 3`)
	f.metrics.EXPECT().ObserveBuild("failed", gomock.Any())

	rec := &recorder{}
	outcome, err := f.runner.Run(context.Background(), f.job.ID, rec.onMessage)
	require.ErrorIs(t, err, domain.ErrProcessFailure)
	assert.Equal(t, domain.OutcomeFailed, outcome)

	// Tool output that looks like a sentinel stays a log line.
	assert.Equal(t, []domain.Message{
		domain.Log("compiling"),
		domain.Log("--- END ---"),
		domain.Log("Build failed: exit code 3"),
		domain.Abort("exit code 3"),
	}, rec.snapshot())
}

func TestRunner_UnknownJob(t *testing.T) {
	f := newFixture(t, "true")
	f.metrics.EXPECT().ObserveBuild("failed", gomock.Any())

	rec := &recorder{}
	_, err := f.runner.Run(context.Background(), "cb-missing", rec.onMessage)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Empty(t, rec.snapshot())
}

func TestRunner_DestroyKills(t *testing.T) {
	f := newFixture(t, `while true; do echo tick; sleep 0.01; done`)
	f.metrics.EXPECT().ObserveBuild("killed", gomock.Any())

	rec := &recorder{}
	type result struct {
		outcome domain.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := f.runner.Run(context.Background(), f.job.ID, rec.onMessage)
		done <- result{outcome, err}
	}()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, f.reg.Destroy(f.job.ID))
	delivered := len(rec.snapshot())

	select {
	case res := <-done:
		assert.Equal(t, domain.OutcomeKilled, res.outcome)
		require.ErrorIs(t, res.err, domain.ErrProcessKilled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the job was destroyed")
	}

	time.Sleep(50 * time.Millisecond)
	msgs := rec.snapshot()
	assert.Len(t, msgs, delivered, "nothing may be delivered after the kill returned")
	for _, msg := range msgs {
		assert.Equal(t, domain.LogLine, msg.Kind)
	}
	assert.NoDirExists(t, f.job.Workspace)
}

func TestRunner_ContextCancelKills(t *testing.T) {
	f := newFixture(t, `echo started; sleep 30`)
	f.metrics.EXPECT().ObserveBuild("killed", gomock.Any())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	done := make(chan error, 1)
	go func() {
		_, err := f.runner.Run(ctx, f.job.ID, rec.onMessage)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrProcessKilled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, []domain.Message{domain.Log("started")}, rec.snapshot())

	// The job survives cancellation; only the session owner destroys it.
	_, err := f.reg.Get(f.job.ID)
	require.NoError(t, err)
}

func TestRunner_StartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	metrics := mocks.NewMockMetrics(ctrl)

	store, err := workspace.NewStore(t.TempDir())
	require.NoError(t, err)
	reg := registry.New(store)
	desc, err := domain.ParseDescriptor("FOO_BUNDLES = foo.lv2", map[string]string{"main.c": ""})
	require.NoError(t, err)
	job, err := reg.Create(context.Background(), desc)
	require.NoError(t, err)

	executor.EXPECT().
		Start(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec domain.ProcessSpec, _ func(string)) (ports.Process, error) {
			assert.Equal(t, []string{"./build", job.ID}, spec.Command)
			assert.Equal(t, "/opt/builder", spec.Dir)
			return nil, assert.AnError
		})
	metrics.EXPECT().ObserveBuild("failed", gomock.Any())

	r := runner.New(reg, executor, telemetry.NewNoOpTracer(), metrics, "/opt/builder", []string{"./build"})

	rec := &recorder{}
	outcome, err := r.Run(context.Background(), job.ID, rec.onMessage)
	require.ErrorIs(t, err, domain.ErrProcessFailure)
	assert.Equal(t, domain.OutcomeFailed, outcome)

	msgs := rec.snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.Log("Build failed: "+assert.AnError.Error()), msgs[0])
	assert.Equal(t, domain.Aborted, msgs[1].Kind)
}
