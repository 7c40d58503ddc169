// Package httpapi exposes the worker and orchestrator nodes over HTTP and websockets.
package httpapi

// SubmitRequest is the body of a job submission.
type SubmitRequest struct {
	Fragment string            `json:"descriptor_fragment"`
	Files    map[string]string `json:"files"`
}

// Response is the envelope of every JSON reply.
type Response struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// BuildRequest is the first frame a caller sends on the build session.
type BuildRequest struct {
	Fragment   string            `json:"fragment"`
	Files      map[string]string `json:"files"`
	Targets    []string          `json:"targets"`
	Persistent bool              `json:"persistent"`
	Name       string            `json:"name,omitempty"`
	Brand      string            `json:"brand,omitempty"`
	Category   string            `json:"category,omitempty"`
}

// Frame types sent on the build session.
const (
	FrameStatus   = "status"
	FrameLog      = "log"
	FrameArtifact = "artifact"
	FrameSession  = "session"
)

// Frame is one server message on the build session.
type Frame struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Target  string `json:"target,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    []byte `json:"data,omitempty"`
	Session string `json:"session,omitempty"`
}
