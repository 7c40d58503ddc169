package archive

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/cloudbuilder/internal/core/ports"
)

// NodeID is the unique identifier for the archive packager Graft node.
const NodeID graft.ID = "adapter.archive"

func init() {
	graft.Register(graft.Node[ports.Packager]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Packager, error) {
			return NewPackager(), nil
		},
	})
}
