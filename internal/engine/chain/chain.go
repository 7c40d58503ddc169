// Package chain drives one logical build through a sequence of worker nodes.
package chain

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
)

// releaseWait bounds the cleanup of a job whose relay session could not be opened.
const releaseWait = 10 * time.Second

// Request describes one chain.
type Request struct {
	Descriptor *domain.BuildDescriptor
	Targets    []string
	// Persistent stores every artifact and the metadata record under a new session.
	Persistent bool
	Meta       domain.ChainMeta
}

// Result reports where a persistent chain stored its artifacts.
type Result struct {
	Session   string
	Artifacts []string
}

// Orchestrator runs chains against the configured workers.
type Orchestrator struct {
	workers map[string]ports.WorkerClient
	store   ports.ChainStore
	tracer  ports.Tracer
	metrics ports.Metrics
	logger  ports.Logger
}

// New creates an Orchestrator. workers maps a target name to the client of its worker.
func New(
	workers map[string]ports.WorkerClient,
	store ports.ChainStore,
	tracer ports.Tracer,
	metrics ports.Metrics,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		workers: maps.Clone(workers),
		store:   store,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Targets returns the configured target names in sorted order.
func (o *Orchestrator) Targets() []string {
	return slices.Sorted(maps.Keys(o.workers))
}

// Run builds req.Descriptor on every target in order. The request is validated
// before anything is submitted. A non-persistent chain hands its single artifact
// to sink and stores nothing. A persistent chain stores each artifact, hands only
// the first one to sink and writes the metadata record once all targets succeeded.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink ports.ChainSink) (*Result, error) {
	meta, err := o.validate(&req)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "chain")
	defer span.End()
	span.SetAttribute("chain.targets", req.Targets)
	span.SetAttribute("chain.persistent", req.Persistent)

	res, err := o.run(ctx, req, meta, sink)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if res.Session != "" {
		span.SetAttribute("chain.session", res.Session)
	}
	return res, nil
}

func (o *Orchestrator) validate(req *Request) (domain.ChainMeta, error) {
	meta := req.Meta
	if len(req.Targets) == 0 {
		return meta, domain.ErrNoTargets
	}
	for _, target := range req.Targets {
		if _, ok := o.workers[target]; !ok {
			return meta, zerr.With(zerr.Wrap(domain.ErrUnknownTarget, "rejected chain"), "target", target)
		}
	}
	if !req.Persistent && len(req.Targets) > 1 {
		return meta, zerr.With(zerr.Wrap(domain.ErrTooManyTargets, "rejected chain"), "targets", len(req.Targets))
	}
	if req.Descriptor == nil {
		return meta, domain.ErrMissingFiles
	}
	if req.Persistent {
		if err := meta.Validate(); err != nil {
			return meta, err
		}
	}
	return meta, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, meta domain.ChainMeta, sink ports.ChainSink) (*Result, error) {
	res := &Result{}
	if req.Persistent {
		session, err := o.store.Create()
		if err != nil {
			return nil, err
		}
		res.Session = session
	}

	for i, target := range req.Targets {
		data, err := o.runTarget(ctx, target, req.Descriptor, sink)
		if err != nil {
			return nil, err
		}

		if !req.Persistent {
			sink.Artifact(target, data)
			return res, nil
		}

		path, err := o.store.PutArtifact(res.Session, target, data)
		if err != nil {
			return nil, err
		}
		res.Artifacts = append(res.Artifacts, path)
		if i == 0 {
			sink.Artifact(target, data)
		}
	}

	if err := o.store.PutMeta(res.Session, meta); err != nil {
		return nil, err
	}
	o.logger.Info("chain " + res.Session + " stored " + meta.Name)
	return res, nil
}

func (o *Orchestrator) runTarget(
	ctx context.Context,
	target string,
	desc *domain.BuildDescriptor,
	sink ports.ChainSink,
) ([]byte, error) {
	ctx, span := o.tracer.Start(ctx, "chain.target")
	defer span.End()
	span.SetAttribute("target", target)

	start := time.Now()
	sink.Status(target, domain.StatusStarted)

	data, err := o.build(ctx, o.workers[target], target, desc, sink)

	result := "success"
	if err != nil {
		result = "failed"
		span.RecordError(err)
		sink.Status(target, domain.StatusError)
	} else {
		sink.Status(target, domain.StatusFinished)
	}
	o.metrics.ObserveTarget(target, result, time.Since(start).Seconds())

	return data, err
}

// build runs one target to completion. The relay session, and with it the
// remote job, is closed before build returns.
func (o *Orchestrator) build(
	ctx context.Context,
	worker ports.WorkerClient,
	target string,
	desc *domain.BuildDescriptor,
	sink ports.ChainSink,
) ([]byte, error) {
	id, err := worker.Submit(ctx, desc)
	if err != nil {
		return nil, &domain.TargetError{Target: target, Err: err}
	}

	session, err := worker.Relay(ctx, id)
	if err != nil {
		o.release(ctx, worker, target, id)
		return nil, &domain.TargetError{Target: target, Err: err}
	}
	defer func() { _ = session.Close() }()

	for {
		msg, err := session.Next(ctx)
		if err != nil {
			return nil, &domain.TargetError{Target: target, Err: err}
		}

		switch msg.Kind {
		case domain.LogLine:
			sink.Log(target, msg.Text)
		case domain.Aborted:
			return nil, &domain.TargetError{
				Target: target,
				Err:    zerr.With(zerr.Wrap(domain.ErrBuildAborted, msg.Text), "job_id", id),
			}
		case domain.Completed:
			data, err := worker.FetchArtifact(ctx, id)
			if err != nil {
				return nil, &domain.TargetError{Target: target, Err: err}
			}
			return data, nil
		}
	}
}

// release destroys a submitted job that never got a relay session. It runs on a
// detached context so a cancelled chain still cleans up.
func (o *Orchestrator) release(ctx context.Context, worker ports.WorkerClient, target, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseWait)
	defer cancel()

	if err := worker.Release(ctx, id); err != nil {
		o.logger.Error(zerr.With(zerr.With(zerr.Wrap(err, "failed to release job"), "job_id", id), "target", target))
	}
}

// Fetch reads a stored artifact of a persistent chain.
func (o *Orchestrator) Fetch(session, target string) ([]byte, error) {
	return o.store.Artifact(session, target)
}
