package domain

import "go.trai.ch/zerr"

// Config is the validated runtime configuration of both node roles.
type Config struct {
	Log          LogConfig
	Worker       WorkerConfig
	Orchestrator OrchestratorConfig
}

// LogConfig selects the log output format.
type LogConfig struct {
	JSON bool
}

// WorkerConfig configures a worker node.
type WorkerConfig struct {
	Listen        string
	WorkspaceRoot string
	ProjectRoot   string
	Tool          []string
}

// OrchestratorConfig configures the orchestrator node.
type OrchestratorConfig struct {
	Listen      string
	StorageRoot string
	// Targets maps a target name to the base URL of its worker.
	Targets map[string]string
}

// ValidateWorker checks the settings a worker node cannot run without.
func (c *Config) ValidateWorker() error {
	switch {
	case c.Worker.Listen == "":
		return invalidConfig("worker.listen", "must not be empty")
	case c.Worker.WorkspaceRoot == "":
		return invalidConfig("worker.workspace_root", "must not be empty")
	case c.Worker.ProjectRoot == "":
		return invalidConfig("worker.project_root", "must not be empty")
	case len(c.Worker.Tool) == 0:
		return invalidConfig("worker.tool", "must name the build command")
	}
	return nil
}

// ValidateOrchestrator checks the settings the orchestrator node cannot run without.
func (c *Config) ValidateOrchestrator() error {
	switch {
	case c.Orchestrator.Listen == "":
		return invalidConfig("orchestrator.listen", "must not be empty")
	case c.Orchestrator.StorageRoot == "":
		return invalidConfig("orchestrator.storage_root", "must not be empty")
	case len(c.Orchestrator.Targets) == 0:
		return invalidConfig("orchestrator.targets", "must configure at least one target")
	}
	return nil
}

func invalidConfig(field, reason string) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrConfigInvalid, reason), "field", field), "reason", reason)
}
