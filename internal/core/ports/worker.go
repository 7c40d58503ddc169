package ports

import (
	"context"

	"go.trai.ch/cloudbuilder/internal/core/domain"
)

// WorkerClient talks to one worker node.
//
//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks
type WorkerClient interface {
	// Submit creates a job on the worker and returns its id.
	Submit(ctx context.Context, desc *domain.BuildDescriptor) (string, error)
	// Relay opens the relay session bound to the job id.
	Relay(ctx context.Context, id string) (RelaySession, error)
	// FetchArtifact downloads the archive of a completed job.
	FetchArtifact(ctx context.Context, id string) ([]byte, error)
	// Release destroys a job no relay session is bound to.
	Release(ctx context.Context, id string) error
}

// RelaySession is the caller side of one relay session.
type RelaySession interface {
	// Next blocks until the next message arrives.
	Next(ctx context.Context) (domain.Message, error)
	// Close ends the session; the worker destroys the bound job.
	Close() error
}
