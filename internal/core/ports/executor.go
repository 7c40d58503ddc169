package ports

import (
	"context"

	"go.trai.ch/cloudbuilder/internal/core/domain"
)

// Executor starts build processes.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Start launches the command and delivers each line of its combined output to onLine,
	// in order, from a single goroutine.
	Start(ctx context.Context, spec domain.ProcessSpec, onLine func(string)) (Process, error)
}

// Process is a running build process.
type Process interface {
	// Wait blocks until the process exited and all of its output was delivered.
	Wait() error
	// Kill terminates the process immediately.
	Kill() error
}
