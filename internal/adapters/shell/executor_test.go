package shell_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cloudbuilder/internal/adapters/shell"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) onLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newExecutor(t *testing.T) *shell.Executor {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return shell.NewExecutor(log)
}

func run(t *testing.T, spec domain.ProcessSpec) ([]string, error) {
	t.Helper()
	rec := &lineRecorder{}
	proc, err := newExecutor(t).Start(context.Background(), spec, rec.onLine)
	require.NoError(t, err)
	err = proc.Wait()
	return rec.snapshot(), err
}

func TestExecutor_LinesInOrder(t *testing.T) {
	lines, err := run(t, domain.ProcessSpec{
		Command: []string{"sh", "-c", "echo line1; echo line2 >&2; echo line3"},
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2", "line3"}, lines)
}

func TestExecutor_FragmentedOutput(t *testing.T) {
	lines, err := run(t, domain.ProcessSpec{
		Command: []string{"sh", "-c", "printf part1; sleep 0.1; echo part2; printf tail"},
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"part1part2", "tail"}, lines)
}

func TestExecutor_WorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	lines, err := run(t, domain.ProcessSpec{
		Command: []string{"sh", "-c", "pwd; echo $CB_TEST_VAR"},
		Dir:     dir,
		Env:     []string{"CB_TEST_VAR=test-value-123"},
	})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, resolved, lines[0])
	assert.Equal(t, "test-value-123", lines[1])
}

func TestExecutor_RelativeToolPath(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "build")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho building $1\n"), 0o755)) //nolint:gosec // test script must be executable

	lines, err := run(t, domain.ProcessSpec{
		Command: []string{"./build", "cb123"},
		Dir:     dir,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"building cb123"}, lines)
}

func TestExecutor_CommandFailure(t *testing.T) {
	_, err := run(t, domain.ProcessSpec{
		Command: []string{"sh", "-c", "exit 42"},
		Dir:     t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")

	var coder interface{ ExitCode() int }
	require.ErrorAs(t, err, &coder)
	assert.Equal(t, 42, coder.ExitCode())
}

func TestExecutor_InvalidCommand(t *testing.T) {
	_, err := newExecutor(t).Start(context.Background(), domain.ProcessSpec{
		Command: []string{"nonexistent-command-xyz123"},
		Dir:     t.TempDir(),
	}, func(string) {})
	require.Error(t, err)
}

func TestExecutor_EmptyCommand(t *testing.T) {
	_, err := newExecutor(t).Start(context.Background(), domain.ProcessSpec{}, func(string) {})
	require.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestExecutor_Kill(t *testing.T) {
	rec := &lineRecorder{}
	proc, err := newExecutor(t).Start(context.Background(), domain.ProcessSpec{
		Command: []string{"sh", "-c", "echo started; sleep 30 & wait"},
		Dir:     t.TempDir(),
	}, rec.onLine)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, proc.Kill())

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrEmptyCommand))
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Kill")
	}

	// Killing an exited process is not an error.
	require.NoError(t, proc.Kill())
}
