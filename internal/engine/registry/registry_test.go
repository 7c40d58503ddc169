package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cloudbuilder/internal/adapters/workspace"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports/mocks"
	"go.trai.ch/cloudbuilder/internal/engine/registry"
	"go.uber.org/mock/gomock"
)

type fakeHandle struct {
	kills atomic.Int32
}

func (h *fakeHandle) Kill() error {
	h.kills.Add(1)
	return nil
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	store, err := workspace.NewStore(t.TempDir())
	require.NoError(t, err)
	return registry.New(store)
}

func newDescriptor(t *testing.T) *domain.BuildDescriptor {
	t.Helper()
	desc, err := domain.ParseDescriptor(
		"FOO_VERSION = 1\nFOO_BUNDLES = foo.lv2\n",
		map[string]string{"main.c": "int main(void) { return 0; }", "foo.ttl": "@prefix lv2: <x> ."},
	)
	require.NoError(t, err)
	return desc
}

func TestRegistry_CreateGet(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	got, err := reg.Get(job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)
	assert.Equal(t, "foo.lv2", got.Bundle)
	assert.DirExists(t, got.Workspace)

	entries, err := os.ReadDir(got.Workspace)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"main.c", "foo.ttl", job.ID + ".mk"}, names)

	content, err := os.ReadFile(filepath.Join(got.Workspace, "main.c"))
	require.NoError(t, err)
	assert.Equal(t, "int main(void) { return 0; }", string(content))

	fragment, err := os.ReadFile(filepath.Join(got.Workspace, job.ID+".mk"))
	require.NoError(t, err)
	assert.Contains(t, string(fragment), strings.ToUpper(job.ID)+"_BUNDLES = foo.lv2")
	assert.NotContains(t, string(fragment), "FOO_")

	state, err := reg.State(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCreated, state)
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := reg.Get("cb000")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.True(t, domain.IsNotFound(err))
}

func TestRegistry_DestroyTwice(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	require.NoError(t, reg.Destroy(job.ID))
	assert.NoDirExists(t, job.Workspace)

	err = reg.Destroy(job.ID)
	require.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = reg.Get(job.ID)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_DestroyKillsRunningProcess(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	h := &fakeHandle{}
	require.NoError(t, reg.Attach(job.ID, h))

	state, err := reg.State(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, state)

	require.NoError(t, reg.Destroy(job.ID))
	assert.Equal(t, int32(1), h.kills.Load())
	assert.NoDirExists(t, job.Workspace)
}

func TestRegistry_AttachDetach(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	first := &fakeHandle{}
	require.NoError(t, reg.Attach(job.ID, first))
	require.ErrorIs(t, reg.Attach(job.ID, &fakeHandle{}), domain.ErrJobBusy)

	reg.Detach(job.ID, first)
	state, err := reg.State(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTerminated, state)

	require.NoError(t, reg.Destroy(job.ID))
	assert.Equal(t, int32(0), first.kills.Load())

	require.ErrorIs(t, reg.Attach(job.ID, first), domain.ErrJobNotFound)
	reg.Detach(job.ID, first)
}

func TestRegistry_Lease(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	lease, err := reg.Lease(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, lease.ID())

	_, err = reg.Lease(job.ID)
	require.ErrorIs(t, err, domain.ErrJobBusy)

	h := &fakeHandle{}
	require.NoError(t, reg.Attach(job.ID, h))

	require.NoError(t, lease.Release())
	require.NoError(t, lease.Release())
	assert.Equal(t, int32(1), h.kills.Load())
	assert.NoDirExists(t, job.Workspace)

	_, err = reg.Lease(job.ID)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestRegistry_LeaseAfterExternalDestroy(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	job, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	lease, err := reg.Lease(job.ID)
	require.NoError(t, err)
	require.NoError(t, reg.Destroy(job.ID))

	require.NoError(t, lease.Release())
}

func TestRegistry_Discard(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	idle, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)
	bound, err := reg.Create(context.Background(), newDescriptor(t))
	require.NoError(t, err)

	require.NoError(t, reg.Discard(idle.ID))
	assert.NoDirExists(t, idle.Workspace)
	require.ErrorIs(t, reg.Discard(idle.ID), domain.ErrJobNotFound)

	lease, err := reg.Lease(bound.ID)
	require.NoError(t, err)
	require.ErrorIs(t, reg.Discard(bound.ID), domain.ErrJobBusy)
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, lease.Release())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_CreateStorageUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockWorkspaceStore(ctrl)
	store.EXPECT().Allocate().Return("", "", domain.ErrStorageUnavailable)

	reg := registry.New(store)
	_, err := reg.Create(context.Background(), newDescriptor(t))
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_CreateReleasesWorkspaceOnWriteFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockWorkspaceStore(ctrl)
	missing := filepath.Join(t.TempDir(), "gone")
	store.EXPECT().Allocate().Return("cb42", missing, nil)
	store.EXPECT().Release("cb42").Return(nil)

	reg := registry.New(store)
	_, err := reg.Create(context.Background(), newDescriptor(t))
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_CreateCancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockWorkspaceStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := registry.New(store).Create(ctx, newDescriptor(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	desc := newDescriptor(t)

	const n = 16
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := reg.Create(context.Background(), desc)
			if !assert.NoError(t, err) {
				return
			}
			_, err = reg.Get(job.ID)
			assert.NoError(t, err)

			// Two sessions racing to destroy the same job: exactly one wins.
			errs := make(chan error, 2)
			go func() { errs <- reg.Destroy(job.ID) }()
			go func() { errs <- reg.Destroy(job.ID) }()
			e1, e2 := <-errs, <-errs
			if e1 == nil {
				assert.ErrorIs(t, e2, domain.ErrJobNotFound)
			} else {
				assert.ErrorIs(t, e1, domain.ErrJobNotFound)
				assert.NoError(t, e2)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Len())
}
