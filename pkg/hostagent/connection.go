package hostagent

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/wognsths/MarketSage/pkg/a2a"
)

/*
UpdateFn is invoked for every update a remote agent produces during a task.
Its return value is the caller's current view of the authoritative task,
captured as the candidate result of a streaming send.
*/
type UpdateFn func(event a2a.TaskEvent, card a2a.AgentCard) *a2a.Task

/*
RemoteConnection owns the network relationship to one remote agent. It is
created once per registration and never mutated afterwards.
*/
type RemoteConnection struct {
	card   a2a.AgentCard
	client *a2a.Client
}

/*
NewRemoteConnection builds a connection from an agent card. A card without
a URL yields a connection with no usable transport.
*/
func NewRemoteConnection(card a2a.AgentCard) *RemoteConnection {
	conn := &RemoteConnection{card: card}

	if card.URL != "" {
		conn.client = a2a.NewClient(card.URL)
	}

	return conn
}

func (conn *RemoteConnection) Card() a2a.AgentCard {
	return conn.card
}

func (conn *RemoteConnection) Available() bool {
	return conn.client != nil
}

/*
Send delivers a task request to the remote agent and returns the final task
result, handling both streaming and single-response agents.

For streaming agents every received update is passed to onUpdate and the
last callback return value becomes the result, which may be nil when the
stream produced nothing. For non-streaming agents the response itself is
returned regardless of what onUpdate returns; downstream status inspection
relies on receiving the authoritative task object either way.

Errors from the transport propagate unchanged; no retry happens here.
*/
func (conn *RemoteConnection) Send(
	ctx context.Context,
	params a2a.TaskSendParams,
	onUpdate UpdateFn,
) (*a2a.Task, error) {
	if conn.card.Capabilities.Streaming {
		return conn.sendStreaming(ctx, params, onUpdate)
	}

	task, err := conn.client.SendTask(ctx, params)

	if err != nil {
		return nil, err
	}

	task.Metadata = mergeMetadata(task.Metadata, params.Metadata)
	rotateMessageID(task.Status.Message, params.Message)

	if onUpdate != nil {
		onUpdate(task, conn.card)
	}

	return task, nil
}

func (conn *RemoteConnection) sendStreaming(
	ctx context.Context,
	params a2a.TaskSendParams,
	onUpdate UpdateFn,
) (*a2a.Task, error) {
	var task *a2a.Task

	if onUpdate != nil {
		// Synthetic submitted update so subscribers see the task before the
		// remote party produces anything.
		task = onUpdate(&a2a.Task{
			ID:        params.ID,
			SessionID: params.SessionID,
			Status: a2a.TaskStatus{
				State:   a2a.TaskStateSubmitted,
				Message: &params.Message,
			},
			History: []a2a.Message{params.Message},
		}, conn.card)
	}

	err := conn.client.SendTaskSubscribe(ctx, params, func(event a2a.TaskEvent) bool {
		if event.EventID() == "" {
			// A malformed update never aborts an otherwise healthy stream;
			// pass it through as-is.
			log.Warn("received task update without id", "agent", conn.card.Name)
		}

		final := false

		switch evt := event.(type) {
		case *a2a.Task:
			evt.Metadata = mergeMetadata(evt.Metadata, params.Metadata)
			rotateMessageID(evt.Status.Message, params.Message)
		case *a2a.TaskStatusUpdateEvent:
			evt.Metadata = mergeMetadata(evt.Metadata, params.Metadata)
			rotateMessageID(evt.Status.Message, params.Message)
			final = evt.Final
		}

		if onUpdate != nil {
			task = onUpdate(event, conn.card)
		}

		return !final
	})

	if err != nil {
		return nil, err
	}

	return task, nil
}

/*
mergeMetadata copies source entries into target without overwriting keys the
target already has. The target map is returned, allocated when needed.
*/
func mergeMetadata(target, source map[string]any) map[string]any {
	if len(source) == 0 {
		return target
	}

	if target == nil {
		target = make(map[string]any, len(source))
	}

	for key, value := range source {
		if _, ok := target[key]; !ok {
			target[key] = value
		}
	}

	return target
}

/*
rotateMessageID merges the request message metadata into the update's status
message and assigns a fresh message id, preserving the previous one under
last_message_id for chaining.
*/
func rotateMessageID(msg *a2a.Message, requestMessage a2a.Message) {
	if msg == nil {
		return
	}

	msg.Metadata = mergeMetadata(msg.Metadata, requestMessage.Metadata)

	if msg.Metadata == nil {
		msg.Metadata = make(map[string]any)
	}

	if prev, ok := msg.Metadata["message_id"]; ok {
		msg.Metadata["last_message_id"] = prev
	}

	msg.Metadata["message_id"] = uuid.NewString()
}
