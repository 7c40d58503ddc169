package ports

import (
	"context"
	"io"

	"go.trai.ch/cloudbuilder/internal/core/domain"
)

// Packager archives the bundle a job produced.
//
//go:generate mockgen -source=packager.go -destination=mocks/mock_packager.go -package=mocks
type Packager interface {
	// Pack writes a compressed archive of the job's bundle to w.
	Pack(ctx context.Context, job *domain.Job, w io.Writer) error
	// Stream packs the bundle and forwards it in fixed size chunks.
	Stream(ctx context.Context, job *domain.Job, onChunk func([]byte) error) error
	// Unpack extracts an archive below dest.
	Unpack(r io.Reader, dest string) error
}
