package hostagent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/wognsths/MarketSage/pkg/a2a"
	"github.com/wognsths/MarketSage/pkg/errors"
	"github.com/wognsths/MarketSage/pkg/stores"
)

/*
EventSink receives every meaningful task update the coordinator observes,
tagged with the card of the agent that produced it. Implementations must
never block the send path on delivery failures.
*/
type EventSink interface {
	OnTaskUpdate(ctx context.Context, event a2a.TaskEvent, card a2a.AgentCard)
}

/*
TaskResponse is the normalized result of a delegated task: the flattened
response items plus the escalation flags the caller needs to decide whether
control returns to the user.
*/
type TaskResponse struct {
	TaskID            string        `json:"task_id"`
	SessionID         string        `json:"session_id"`
	State             a2a.TaskState `json:"state"`
	Parts             []any         `json:"response"`
	Escalate          bool          `json:"escalate"`
	SkipSummarization bool          `json:"skip_summarization"`
}

/*
HostAgent is the top-level orchestrator. It resolves agents through the
directory, tracks per-conversation session state, delegates task requests
to remote connections and forwards every update to the event sink.
*/
type HostAgent struct {
	directory *Directory
	sessions  SessionStore
	artifacts stores.ArtifactStore
	sink      EventSink
}

func NewHostAgent(
	sessions SessionStore,
	artifacts stores.ArtifactStore,
	sink EventSink,
) *HostAgent {
	return &HostAgent{
		directory: NewDirectory(),
		sessions:  sessions,
		artifacts: artifacts,
		sink:      sink,
	}
}

/*
RegisterAgent discovers the agent served at address and registers it under
its card name. Discovery failures propagate; registration is not retried.
*/
func (host *HostAgent) RegisterAgent(ctx context.Context, address string) error {
	card, err := a2a.NewCardResolver(address).GetAgentCard(ctx)

	if err != nil {
		return fmt.Errorf("failed to register agent at %s: %w", address, err)
	}

	host.RegisterAgentCard(*card)

	return nil
}

/*
RegisterAgentCard registers an already-resolved card, replacing any prior
entry with the same name.
*/
func (host *HostAgent) RegisterAgentCard(card a2a.AgentCard) {
	host.directory.Register(NewRemoteConnection(card))
}

/*
ListAgents returns the name/description pairs of every registered agent.
*/
func (host *HostAgent) ListAgents() []AgentInfo {
	return host.directory.List()
}

/*
SendTask delegates a user message to the named agent and waits for the
final task result. The conversation identified by conversationID acquires a
session id on first use; the task id is reused across turns until the task
reaches a terminal state.

A failed or canceled terminal state surfaces as an error after the session
activity flag is cleared. An input-required state sets both escalation
flags and keeps the session active.
*/
func (host *HostAgent) SendTask(
	ctx context.Context,
	agentName string,
	message string,
	conversationID string,
) (*TaskResponse, error) {
	conn, err := host.directory.Resolve(agentName)

	if err != nil {
		return nil, err
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	state, ok := host.sessions.Get(conversationID)

	if !ok {
		state = &SessionState{}
	}

	if state.SessionID == "" {
		state.SessionID = conversationID
	}

	state.Active = true
	state.AgentName = agentName
	state.SkipSummarization = false
	state.Escalate = false

	taskID := state.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	state.TaskID = taskID

	metadata := make(map[string]any, len(state.InputMetadata)+2)
	for key, value := range state.InputMetadata {
		metadata[key] = value
	}

	messageID, _ := metadata["message_id"].(string)
	if messageID == "" {
		messageID = state.MessageID
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}

	metadata["conversation_id"] = state.SessionID
	metadata["message_id"] = messageID

	params := a2a.TaskSendParams{
		ID:        taskID,
		SessionID: state.SessionID,
		Message: a2a.Message{
			Role:     "user",
			Parts:    []a2a.Part{{Type: a2a.PartTypeText, Text: message}},
			Metadata: metadata,
		},
		AcceptedOutputModes: []string{"text", "text/plain", "image/png"},
		Metadata:            map[string]any{"conversation_id": state.SessionID},
	}

	// Fold every update into the current authoritative task view while
	// forwarding it to the sink.
	var current *a2a.Task

	onUpdate := func(event a2a.TaskEvent, card a2a.AgentCard) *a2a.Task {
		if host.sink != nil {
			host.sink.OnTaskUpdate(ctx, event, card)
		}

		switch evt := event.(type) {
		case *a2a.Task:
			current = evt
		case *a2a.TaskStatusUpdateEvent:
			if current == nil {
				current = &a2a.Task{ID: evt.ID, SessionID: evt.SessionID}
			}
			current.Status = evt.Status
		case *a2a.TaskArtifactUpdateEvent:
			if current == nil {
				current = &a2a.Task{ID: evt.ID}
			}
			current.Artifacts = append(current.Artifacts, evt.Artifact)
		}

		return current
	}

	task, err := conn.Send(ctx, params, onUpdate)

	if err != nil {
		return nil, err
	}

	if task == nil {
		// The stream produced no usable result; return control to the user.
		log.Warn("task produced no result", "agent", agentName, "task", taskID)

		state.Active = false
		state.TaskID = ""
		host.sessions.Set(conversationID, state)

		return &TaskResponse{
			TaskID:    taskID,
			SessionID: state.SessionID,
			State:     a2a.TaskStateUnknown,
			Parts:     []any{},
		}, nil
	}

	state.Active = !task.Status.State.Terminal()

	if task.Status.State.Terminal() {
		state.TaskID = ""
	}

	if task.Status.Message != nil {
		if rotated, ok := task.Status.Message.Metadata["message_id"].(string); ok && rotated != "" {
			state.MessageID = rotated
		}
	}

	switch task.Status.State {
	case a2a.TaskStateInputReq:
		// Force user input back.
		state.SkipSummarization = true
		state.Escalate = true

	case a2a.TaskStateCanceled:
		host.sessions.Set(conversationID, state)
		return nil, &errors.TaskCanceled{Agent: agentName, TaskID: task.ID}

	case a2a.TaskStateFailed:
		host.sessions.Set(conversationID, state)
		return nil, &errors.TaskFailed{Agent: agentName, TaskID: task.ID}
	}

	response := make([]any, 0)

	if task.Status.Message != nil {
		log.Info("response received",
			"agent", agentName,
			"task", task.ID,
			"state", task.Status.State,
		)
		response = append(response, convertParts(ctx, task.Status.Message.Parts, state, host.artifacts)...)
	}

	for _, artifact := range task.Artifacts {
		response = append(response, convertParts(ctx, artifact.Parts, state, host.artifacts)...)
	}

	host.sessions.Set(conversationID, state)

	if host.sink != nil && len(response) > 0 {
		now := time.Now()

		lines := make([]string, 0, len(response))
		for _, item := range response {
			lines = append(lines, fmt.Sprintf("%v", item))
		}

		host.sink.OnTaskUpdate(ctx, &a2a.TaskStatusUpdateEvent{
			ID:        task.ID,
			SessionID: state.SessionID,
			Status: a2a.TaskStatus{
				State:     task.Status.State,
				Message:   a2a.NewTextMessage("agent", strings.Join(lines, "\n")),
				Timestamp: &now,
			},
		}, conn.Card())
	}

	return &TaskResponse{
		TaskID:            task.ID,
		SessionID:         state.SessionID,
		State:             task.Status.State,
		Parts:             response,
		Escalate:          state.Escalate,
		SkipSummarization: state.SkipSummarization,
	}, nil
}
