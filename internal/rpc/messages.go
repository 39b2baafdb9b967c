package rpc

import "time"

// SessionDescriptor is the wire representation of a session's public
// state, returned from list/create/attach.
type SessionDescriptor struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Cwd       string    `json:"cwd"`
	State     string    `json:"state"` // "starting", "running", "exited"
	ExitCode  *int      `json:"exit_code,omitempty"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// PTYOptions is the wire representation of CreateRequest's spawn options.
type PTYOptions struct {
	Command     string            `json:"command"`
	Arguments   []string          `json:"arguments"`
	WorkingDir  string            `json:"working_directory"`
	Environment map[string]string `json:"environment,omitempty"`
	Cols        int               `json:"cols"`
	Rows        int               `json:"rows"`
	IdleTimeout *time.Duration    `json:"idle_timeout,omitempty"`
}

// ListRequest carries no fields: C -> S.
type ListRequest struct{}

// ListResponse: S -> C.
type ListResponse struct {
	Sessions []SessionDescriptor `json:"sessions"`
}

// CreateRequest: C -> S.
type CreateRequest struct {
	ID      string     `json:"id"`
	Options PTYOptions `json:"options"`
}

// CreateResponse: S -> C.
type CreateResponse struct {
	Descriptor SessionDescriptor `json:"descriptor"`
}

// AttachRequest: C -> S. Primary defaults to true; Cols/Rows of 0 mean
// "don't resize, use the session's current size".
type AttachRequest struct {
	ID      string `json:"id"`
	Cols    int    `json:"cols,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Primary bool   `json:"primary"`
}

// AttachResponse: S -> C. BufferedOutput is the serialized screen-buffer
// replay (see internal/vt Screen.Serialize), sent once before streaming
// mode begins.
type AttachResponse struct {
	Descriptor     SessionDescriptor `json:"descriptor"`
	BufferedOutput []byte            `json:"buffered_output"`
}

// InputFrame: C -> S, while attached.
type InputFrame struct {
	Bytes []byte `json:"bytes"`
}

// ResizeFrame: C -> S, while attached.
type ResizeFrame struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// DetachRequest carries no fields: C -> S.
type DetachRequest struct{}

// DetachResponse carries no fields: S -> C, acknowledging that the
// connection has fully returned to request/response mode.
type DetachResponse struct{}

// OutputFrame: S -> C, while attached.
type OutputFrame struct {
	Bytes []byte `json:"bytes"`
}

// ExitFrame: S -> C, while attached. Terminates the streaming phase.
type ExitFrame struct {
	ExitCode int `json:"exit_code"`
}

// KillRequest: C -> S.
type KillRequest struct {
	ID    string `json:"id"`
	Force bool   `json:"force"`
}

// KillResponse: S -> C.
type KillResponse struct {
	Killed bool `json:"killed"`
}

// ErrorResponse: S -> C, sent in place of any of the above responses when
// the request failed.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
