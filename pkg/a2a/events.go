package a2a

import "encoding/json"

/*
TaskEvent is the tagged union over everything a remote agent can push back
during a task: the full task object, a status transition, or a new artifact.
*/
type TaskEvent interface {
	// EventID returns the task id the event belongs to, or "" when the
	// remote party omitted it.
	EventID() string
}

func (task *Task) EventID() string { return task.ID }

func (evt *TaskStatusUpdateEvent) EventID() string { return evt.ID }

func (evt *TaskArtifactUpdateEvent) EventID() string { return evt.ID }

// eventEnvelope is the superset shape used to discriminate incoming events.
type eventEnvelope struct {
	Artifact *Artifact `json:"artifact"`
	Final    *bool     `json:"final"`
}

/*
UnmarshalTaskEvent decodes a wire payload into the concrete event variant.
Payloads carrying an artifact become TaskArtifactUpdateEvent, payloads with
a final marker become TaskStatusUpdateEvent, everything else is a full Task.
*/
func UnmarshalTaskEvent(data []byte) (TaskEvent, error) {
	var envelope eventEnvelope

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch {
	case envelope.Artifact != nil:
		var evt TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	case envelope.Final != nil:
		var evt TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	default:
		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, err
		}
		return &task, nil
	}
}
