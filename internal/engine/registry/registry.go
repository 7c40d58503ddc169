// Package registry tracks the in-flight jobs of a worker node.
package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
)

// Handle is the running process bound to a job.
type Handle interface {
	Kill() error
}

type entry struct {
	job    *domain.Job
	state  domain.JobState
	handle Handle
	leased bool
}

// Registry maps job ids to their workspace and running process.
// It is the only mutable state shared between relay sessions.
type Registry struct {
	store ports.WorkspaceStore

	mu   sync.Mutex
	jobs map[string]*entry
}

// New creates an empty Registry allocating workspaces from store.
func New(store ports.WorkspaceStore) *Registry {
	return &Registry{
		store: store,
		jobs:  make(map[string]*entry),
	}
}

// Create allocates a workspace, writes the descriptor files and the rewritten
// fragment into it, and registers the job.
func (r *Registry) Create(ctx context.Context, desc *domain.BuildDescriptor) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, path, err := r.store.Allocate()
	if err != nil {
		return nil, err
	}

	if err := materialize(path, id, desc); err != nil {
		_ = r.store.Release(id)
		return nil, err
	}

	job := &domain.Job{
		ID:         id,
		Workspace:  path,
		Bundle:     desc.Bundle,
		Descriptor: desc,
	}

	r.mu.Lock()
	r.jobs[id] = &entry{job: job, state: domain.JobCreated}
	r.mu.Unlock()

	return job, nil
}

func materialize(dir, id string, desc *domain.BuildDescriptor) error {
	for name, content := range desc.Files {
		if !domain.IsPlainName(name) {
			return zerr.With(zerr.Wrap(domain.ErrInvalidFileName, "rejected descriptor file"), "file", name)
		}
		//nolint:gosec // name is a validated base name inside the job workspace
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write descriptor file"), "file", name)
		}
	}

	fragment := filepath.Join(dir, id+domain.FragmentExt)
	//nolint:gosec // fragment path is derived from the allocated job id
	if err := os.WriteFile(fragment, []byte(desc.FragmentFor(id)), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write fragment"), "job_id", id)
	}
	return nil
}

// Get returns the job registered under id.
func (r *Registry) Get(id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return e.job, nil
}

// State returns the lifecycle state of the job registered under id.
func (r *Registry) State(id string) (domain.JobState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return 0, notFound(id)
	}
	return e.state, nil
}

// Destroy kills the running process of the job, removes its workspace and drops the
// entry. The entry is removed under the lock first, so concurrent callers never see a
// half destroyed job and a second Destroy of the same id reports ErrJobNotFound.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	r.mu.Unlock()

	if !ok {
		return notFound(id)
	}

	var killErr error
	if e.handle != nil {
		killErr = e.handle.Kill()
	}

	if err := r.store.Release(id); err != nil {
		return err
	}
	if killErr != nil {
		return zerr.With(zerr.Wrap(killErr, "failed to kill build process"), "job_id", id)
	}
	return nil
}

// Attach binds the running process of a job. A job runs at most one process.
func (r *Registry) Attach(id string, h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return notFound(id)
	}
	if e.handle != nil {
		return zerr.With(zerr.Wrap(domain.ErrJobBusy, "build already running"), "job_id", id)
	}
	e.handle = h
	e.state = domain.JobRunning
	return nil
}

// Detach unbinds h once its process has exited. It is a no-op when the job was
// destroyed meanwhile or another handle is bound.
func (r *Registry) Detach(id string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.handle != h {
		return
	}
	e.handle = nil
	e.state = domain.JobTerminated
}

// Lease binds the job to one session. Releasing the lease destroys the job.
func (r *Registry) Lease(id string) (*Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	if e.leased {
		return nil, zerr.With(zerr.Wrap(domain.ErrJobBusy, "job already bound to a session"), "job_id", id)
	}
	e.leased = true
	return &Lease{registry: r, id: id}, nil
}

// Discard destroys a job no session is bound to. A job bound to a session is
// only destroyed by releasing that lease.
func (r *Registry) Discard(id string) error {
	lease, err := r.Lease(id)
	if err != nil {
		return err
	}
	return lease.Release()
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func notFound(id string) error {
	return zerr.With(zerr.Wrap(domain.ErrJobNotFound, "unknown job"), "job_id", id)
}

// Lease is the scoped ownership of one job by one session.
type Lease struct {
	registry *Registry
	id       string
	once     sync.Once
	err      error
}

// ID returns the leased job id.
func (l *Lease) ID() string {
	return l.id
}

// Release kills and destroys the job. Only the first call has an effect; a job
// destroyed through another path is not an error.
func (l *Lease) Release() error {
	l.once.Do(func() {
		err := l.registry.Destroy(l.id)
		if err != nil && !domain.IsNotFound(err) {
			l.err = err
		}
	})
	return l.err
}
