package ports

import "go.trai.ch/cloudbuilder/internal/core/domain"

// ChainStore persists the artifacts of multi-target chains.
//
//go:generate mockgen -source=chain.go -destination=mocks/mock_chain.go -package=mocks
type ChainStore interface {
	// Create allocates a new session directory and returns its name.
	Create() (string, error)
	// PutArtifact stores the archive of one target and returns its path.
	PutArtifact(session, target string, data []byte) (string, error)
	// PutMeta writes the metadata record that marks a session complete.
	PutMeta(session string, meta domain.ChainMeta) error
	// Artifact reads the stored archive of one target.
	Artifact(session, target string) ([]byte, error)
}

// ChainSink receives the progress of a chain.
type ChainSink interface {
	Log(target, line string)
	Status(target string, status domain.ChainStatus)
	Artifact(target string, data []byte)
}
