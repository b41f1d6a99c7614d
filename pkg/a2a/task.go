package a2a

import "time"

/*
TaskState enumerates the mutually-exclusive states a task may be in.
Unrecognized states fall back to "unknown".
*/
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateInputReq  TaskState = "input-required"
	TaskStateCompleted TaskState = "completed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateFailed    TaskState = "failed"
	TaskStateUnknown   TaskState = "unknown"
)

/*
Terminal reports whether the state ends the task lifecycle. Input-required
is non-terminal: the remote agent is still waiting, control just moves back
to the user.
*/
func (state TaskState) Terminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateUnknown:
		return true
	}
	return false
}

type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

/*
TaskSendParams represents the payload of a `tasks/send` call.
*/
type TaskSendParams struct {
	// ID is the unique identifier for the task being initiated or continued
	ID string `json:"id"`
	// SessionID is an optional identifier for the session this task belongs to
	SessionID string `json:"sessionId,omitempty"`
	// Message is the message content to send to the agent for processing
	Message Message `json:"message"`
	// AcceptedOutputModes lists the content types the caller can handle
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	// Metadata is optional conversation-level metadata associated with this send
	Metadata map[string]any `json:"metadata,omitempty"`
}

/*
TaskStatusUpdateEvent is sent when the agent wishes to inform the client of
a status transition.
*/
type TaskStatusUpdateEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artifact is
available for a task.
*/
type TaskArtifactUpdateEvent struct {
	ID       string         `json:"id"`
	Artifact Artifact       `json:"artifact"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
