// Package runner executes the build tool for a registered job and reports its output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/engine/registry"
	"go.trai.ch/zerr"
)

// Runner spawns the build tool for jobs of a registry.
type Runner struct {
	registry    *registry.Registry
	executor    ports.Executor
	tracer      ports.Tracer
	metrics     ports.Metrics
	projectRoot string
	tool        []string
	env         []string
}

// New creates a Runner invoking tool with the job id as last argument inside projectRoot.
func New(
	reg *registry.Registry,
	executor ports.Executor,
	tracer ports.Tracer,
	metrics ports.Metrics,
	projectRoot string,
	tool []string,
) *Runner {
	return &Runner{
		registry:    reg,
		executor:    executor,
		tracer:      tracer,
		metrics:     metrics,
		projectRoot: projectRoot,
		tool:        slices.Clone(tool),
	}
}

// WithEnv sets extra environment variables for every build.
func (r *Runner) WithEnv(env []string) *Runner {
	r.env = slices.Clone(env)
	return r
}

// Run builds the job and delivers every output line to onMessage as a log message.
// A successful run ends with the success line and a Completed message, a failed one
// with the exit status and an Aborted message. Once the job is killed, through ctx
// or by destroying it, onMessage is never called again.
func (r *Runner) Run(ctx context.Context, id string, onMessage func(domain.Message)) (domain.Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "build")
	defer span.End()
	span.SetAttribute("job.id", id)

	start := time.Now()
	outcome, err := r.run(ctx, id, onMessage)

	span.SetAttribute("build.outcome", outcome.String())
	if err != nil {
		span.RecordError(err)
	}
	r.metrics.ObserveBuild(outcome.String(), time.Since(start).Seconds())

	return outcome, err
}

func (r *Runner) run(ctx context.Context, id string, onMessage func(domain.Message)) (domain.Outcome, error) {
	job, err := r.registry.Get(id)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	g := &gate{onMessage: onMessage}
	spec := domain.ProcessSpec{
		Command: append(slices.Clone(r.tool), job.ID),
		Dir:     r.projectRoot,
		Env:     r.env,
	}

	proc, err := r.executor.Start(ctx, spec, g.log)
	if err != nil {
		g.log("Build failed: " + err.Error())
		g.deliver(domain.Abort(err.Error()))
		return domain.OutcomeFailed, zerr.With(zerr.Wrap(domain.ErrProcessFailure, err.Error()), "job_id", id)
	}

	h := &handle{proc: proc, gate: g}
	if err := r.registry.Attach(id, h); err != nil {
		_ = h.Kill()
		_ = proc.Wait()
		return domain.OutcomeKilled, err
	}
	defer r.registry.Detach(id, h)

	stop := context.AfterFunc(ctx, func() { _ = h.Kill() })
	defer stop()

	waitErr := proc.Wait()

	if g.isClosed() {
		return domain.OutcomeKilled, zerr.With(zerr.Wrap(domain.ErrProcessKilled, "build interrupted"), "job_id", id)
	}

	if waitErr != nil {
		code := exitCode(waitErr)
		reason := fmt.Sprintf("exit code %d", code)
		g.log("Build failed: " + reason)
		g.deliver(domain.Abort(reason))
		return domain.OutcomeFailed, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrProcessFailure, "build tool exited"), "exit_code", code),
			"job_id", id,
		)
	}

	g.log(domain.SuccessLine)
	g.deliver(domain.Complete())
	return domain.OutcomeSuccess, nil
}

func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

// gate forwards messages until it is closed. Closing waits for an in-flight
// delivery, so nothing is delivered after close returns.
type gate struct {
	mu        sync.Mutex
	closed    bool
	onMessage func(domain.Message)
}

func (g *gate) deliver(msg domain.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.onMessage(msg)
}

func (g *gate) log(line string) {
	g.deliver(domain.Log(line))
}

func (g *gate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

func (g *gate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// handle is the registry's view of a running build.
type handle struct {
	proc ports.Process
	gate *gate
}

// Kill silences the output first and then kills the process.
func (h *handle) Kill() error {
	h.gate.close()
	return h.proc.Kill()
}
