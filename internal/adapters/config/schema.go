package config

// File represents the structure of the cloudbuilder.yaml configuration file.
type File struct {
	Log          LogDTO          `yaml:"log"`
	Worker       WorkerDTO       `yaml:"worker"`
	Orchestrator OrchestratorDTO `yaml:"orchestrator"`
}

// LogDTO represents the log section.
type LogDTO struct {
	JSON bool `yaml:"json"`
}

// WorkerDTO represents the worker section.
type WorkerDTO struct {
	Listen        string   `yaml:"listen"`
	WorkspaceRoot string   `yaml:"workspace_root"`
	ProjectRoot   string   `yaml:"project_root"`
	Tool          []string `yaml:"tool"`
}

// OrchestratorDTO represents the orchestrator section.
type OrchestratorDTO struct {
	Listen      string            `yaml:"listen"`
	StorageRoot string            `yaml:"storage_root"`
	Targets     map[string]string `yaml:"targets"`
}

func defaults() File {
	return File{
		Worker: WorkerDTO{
			Listen:        ":8003",
			WorkspaceRoot: "jobs",
			Tool:          []string{"./build"},
		},
		Orchestrator: OrchestratorDTO{
			Listen:      ":8000",
			StorageRoot: "chains",
		},
	}
}
