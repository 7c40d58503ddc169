package domain

// Job is one build attempt bound to an isolated workspace.
type Job struct {
	// ID equals the workspace basename and is the only external handle of the job.
	ID string
	// Workspace is the absolute path of the directory owned by the job.
	Workspace string
	// Bundle is the directory the build tool is expected to leave in the workspace.
	Bundle string
	// Descriptor is the submission the job was created from.
	Descriptor *BuildDescriptor
}

// JobState is the lifecycle position of a job.
type JobState int

const (
	// JobCreated means the workspace is materialized and nothing runs yet.
	JobCreated JobState = iota
	// JobRunning means a build process is attached to the job.
	JobRunning
	// JobTerminated means the build process exited or was killed.
	JobTerminated
)

func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobRunning:
		return "running"
	case JobTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is the result of one build run.
type Outcome int

const (
	// OutcomeSuccess means the build tool exited with status zero.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the build tool exited with a non-zero status or could not start.
	OutcomeFailed
	// OutcomeKilled means the build was killed before it exited.
	OutcomeKilled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// ProcessSpec describes the command line of one build.
type ProcessSpec struct {
	Command []string
	Dir     string
	Env     []string
}
