package errors

import "fmt"

// Error types for the host coordinator
type (
	// AgentNotFound is returned when a requested agent name is absent
	// from the directory.
	AgentNotFound struct {
		Name string
	}

	// ConnectionUnavailable is returned when a resolved agent has no
	// usable transport handle.
	ConnectionUnavailable struct {
		Name string
	}

	// TaskFailed is returned when the remote party reported a failed
	// terminal state.
	TaskFailed struct {
		Agent  string
		TaskID string
	}

	// TaskCanceled is returned when the remote party reported a canceled
	// terminal state.
	TaskCanceled struct {
		Agent  string
		TaskID string
	}
)

func (e *AgentNotFound) Error() string {
	return fmt.Sprintf("agent not found: %s", e.Name)
}

func (e *ConnectionUnavailable) Error() string {
	return fmt.Sprintf("no connection available for agent: %s", e.Name)
}

func (e *TaskFailed) Error() string {
	return fmt.Sprintf("agent %s task %s failed", e.Agent, e.TaskID)
}

func (e *TaskCanceled) Error() string {
	return fmt.Sprintf("agent %s task %s is cancelled", e.Agent, e.TaskID)
}
