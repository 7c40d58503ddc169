package domain

const (
	// ConfigFileName is the default name of the configuration file.
	ConfigFileName = "cloudbuilder.yaml"

	// EnvFileName is the name of the optional dotenv file read next to the configuration.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment variable that overrides the configuration.
	EnvPrefix = "CLOUDBUILDER_"

	// WorkspacePrefix prefixes every job workspace directory.
	WorkspacePrefix = "cb"

	// FragmentExt is the extension of the fragment file written into a workspace.
	FragmentExt = ".mk"

	// ArchiveExt is the extension of persisted chain artifacts.
	ArchiveExt = ".tar"

	// ChainMetaFileName is the name of the metadata record written after a chain completes.
	ChainMetaFileName = "config.json"

	// ChunkSize is the block size used when streaming artifacts.
	ChunkSize = 8 * 1024

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// HTTP routes shared by the worker server and its client.
const (
	JobsPath      = "/api/jobs"
	RelayPath     = "/ws/relay"
	BuildPath     = "/ws/build"
	ChainsPath    = "/api/chains"
	TargetsPath   = "/api/targets"
	CategoryPath  = "/api/categories"
	HealthPath    = "/healthz"
	MetricsPath   = "/metrics"
	ArtifactRoute = "artifact"
)
