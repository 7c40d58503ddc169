package ports

// WorkspaceStore allocates and releases per-job directories.
//
//go:generate mockgen -source=workspace.go -destination=mocks/mock_workspace.go -package=mocks
type WorkspaceStore interface {
	// Allocate creates a fresh directory and returns its basename and absolute path.
	Allocate() (id, path string, err error)
	// Release removes the directory of id recursively.
	Release(id string) error
}
