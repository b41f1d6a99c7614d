package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wognsths/MarketSage/pkg/a2a"
	"github.com/wognsths/MarketSage/pkg/metrics"
)

var thoughtPattern = regexp.MustCompile(
	`(?i)(?:Thought process:|Reasoning:|Thinking:|I need to|Let me think about)([^<]*)`,
)

/*
Dispatcher classifies task updates into agent-change, thought-process and
completion notifications and posts them to the subscriber registered for
the task. Delivery failures are logged and swallowed; they never reach the
coordinator's call path.
*/
type Dispatcher struct {
	auth    *SenderAuth
	conn    *http.Client
	metrics *metrics.DeliveryMetrics

	mu          sync.Mutex
	subscribers map[string]string
	thoughts    map[string]string
	agents      map[string]string
}

func NewDispatcher(auth *SenderAuth) *Dispatcher {
	return &Dispatcher{
		auth:        auth,
		conn:        &http.Client{Timeout: 10 * time.Second},
		metrics:     metrics.NewDeliveryMetrics(),
		subscribers: make(map[string]string),
		thoughts:    make(map[string]string),
		agents:      make(map[string]string),
	}
}

// Metrics exposes the delivery counters for the HTTP surface.
func (dispatcher *Dispatcher) Metrics() *metrics.DeliveryMetrics {
	return dispatcher.metrics
}

/*
RegisterSubscriber records the notification URL for a task, replacing any
previous registration.
*/
func (dispatcher *Dispatcher) RegisterSubscriber(taskID, url string) {
	dispatcher.mu.Lock()
	dispatcher.subscribers[taskID] = url
	dispatcher.mu.Unlock()

	log.Info("registered notification url", "task", taskID, "url", url)
}

/*
OnTaskUpdate implements the coordinator's event sink. Updates without a
task id are dropped with a warning.
*/
func (dispatcher *Dispatcher) OnTaskUpdate(
	ctx context.Context, event a2a.TaskEvent, card a2a.AgentCard,
) {
	taskID := event.EventID()

	if taskID == "" {
		log.Warn("received update without task id")
		return
	}

	dispatcher.trackAgent(ctx, taskID, card)

	var status *a2a.TaskStatus
	var artifacts []a2a.Artifact

	switch evt := event.(type) {
	case *a2a.Task:
		status = &evt.Status
		artifacts = evt.Artifacts
	case *a2a.TaskStatusUpdateEvent:
		status = &evt.Status
	case *a2a.TaskArtifactUpdateEvent:
		artifacts = []a2a.Artifact{evt.Artifact}
	}

	if status != nil && status.Message != nil {
		dispatcher.trackThought(ctx, taskID, status.Message.Text())
	}

	if status != nil && status.State == a2a.TaskStateCompleted {
		dispatcher.completeTask(ctx, taskID, card.Name, status.Message, artifacts)
	}
}

/*
trackAgent records the active agent for the task and emits an agent_change
notification when it differs from the previous one. The first observation
counts as a change.
*/
func (dispatcher *Dispatcher) trackAgent(ctx context.Context, taskID string, card a2a.AgentCard) {
	dispatcher.mu.Lock()
	previous, seen := dispatcher.agents[taskID]

	if seen && previous == card.Name {
		dispatcher.mu.Unlock()
		return
	}

	dispatcher.agents[taskID] = card.Name
	dispatcher.mu.Unlock()

	description := ""
	if card.Description != nil {
		description = *card.Description
	}

	skills := make([]map[string]any, 0, len(card.Skills))
	for _, skill := range card.Skills {
		entry := map[string]any{"name": skill.Name}
		if skill.Description != nil {
			entry["description"] = *skill.Description
		}
		skills = append(skills, entry)
	}

	dispatcher.send(ctx, taskID, map[string]any{
		"type":    "agent_change",
		"task_id": taskID,
		"agent": map[string]any{
			"name":        card.Name,
			"description": description,
			"skills":      skills,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

/*
trackThought extracts a thought-process fragment from the message text,
appends it to the task's accumulated log unless the log already contains
it, and emits a thought_process notification carrying the full log.
*/
func (dispatcher *Dispatcher) trackThought(ctx context.Context, taskID, text string) {
	match := thoughtPattern.FindStringSubmatch(text)

	if match == nil {
		return
	}

	thought := strings.TrimSpace(match[1])

	if thought == "" {
		return
	}

	dispatcher.mu.Lock()
	history, ok := dispatcher.thoughts[taskID]

	switch {
	case !ok:
		history = thought
	case !strings.Contains(history, thought):
		history += "\n" + thought
	}

	dispatcher.thoughts[taskID] = history
	dispatcher.mu.Unlock()

	dispatcher.send(ctx, taskID, map[string]any{
		"type":            "thought_process",
		"task_id":         taskID,
		"thought_process": history,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

/*
completeTask emits the task_completion notification and drops all tracking
for the task, including its subscriber registration. Further updates for
the same task id are silent until a new registration arrives.
*/
func (dispatcher *Dispatcher) completeTask(
	ctx context.Context,
	taskID string,
	agentName string,
	message *a2a.Message,
	artifacts []a2a.Artifact,
) {
	result := map[string]any{
		"state":           string(a2a.TaskStateCompleted),
		"agent":           agentName,
		"completion_time": time.Now().UTC().Format(time.RFC3339),
	}

	if message != nil {
		if response := renderParts(message.Parts); response != "" {
			result["response"] = response
		}
	}

	if summaries := summarizeArtifacts(artifacts); len(summaries) > 0 {
		result["artifacts"] = summaries
	}

	dispatcher.send(ctx, taskID, map[string]any{
		"type":      "task_completion",
		"task_id":   taskID,
		"result":    result,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	dispatcher.mu.Lock()
	delete(dispatcher.thoughts, taskID)
	delete(dispatcher.agents, taskID)
	delete(dispatcher.subscribers, taskID)
	dispatcher.mu.Unlock()
}

/*
send signs and posts one notification payload. A missing subscriber is a
no-op; every failure mode is logged and swallowed.
*/
func (dispatcher *Dispatcher) send(ctx context.Context, taskID string, payload map[string]any) {
	dispatcher.mu.Lock()
	url, ok := dispatcher.subscribers[taskID]
	dispatcher.mu.Unlock()

	if !ok {
		log.Warn("no notification url registered", "task", taskID)
		dispatcher.metrics.RecordSkip()
		return
	}

	token, err := dispatcher.auth.CreateToken(taskID)

	if err != nil {
		log.Error("failed to sign notification", "task", taskID, "error", err)
		dispatcher.metrics.RecordFailure()
		return
	}

	body, err := json.Marshal(payload)

	if err != nil {
		log.Error("failed to encode notification", "task", taskID, "error", err)
		dispatcher.metrics.RecordFailure()
		return
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))

	if err != nil {
		log.Error("failed to build notification request", "task", taskID, "error", err)
		dispatcher.metrics.RecordFailure()
		return
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := dispatcher.conn.Do(request)

	if err != nil {
		log.Error("failed to send notification", "task", taskID, "error", err)
		dispatcher.metrics.RecordFailure()
		return
	}

	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		log.Error("notification rejected", "task", taskID, "status", response.StatusCode)
		dispatcher.metrics.RecordFailure()
		return
	}

	notificationType, _ := payload["type"].(string)
	dispatcher.metrics.RecordDelivery(notificationType)

	log.Info("notification delivered", "task", taskID, "type", notificationType)
}

func renderParts(parts []a2a.Part) string {
	rendered := make([]string, 0, len(parts))

	for _, part := range parts {
		switch part.Type {
		case a2a.PartTypeText:
			if part.Text != "" {
				rendered = append(rendered, part.Text)
			}
		case a2a.PartTypeData:
			if len(part.Data) > 0 {
				if encoded, err := json.Marshal(part.Data); err == nil {
					rendered = append(rendered, string(encoded))
				}
			}
		}
	}

	return strings.Join(rendered, "\n")
}

func summarizeArtifacts(artifacts []a2a.Artifact) []map[string]any {
	summaries := make([]map[string]any, 0, len(artifacts))

	for _, artifact := range artifacts {
		name := "unnamed"
		if artifact.Name != nil {
			name = *artifact.Name
		}

		description := ""
		if artifact.Description != nil {
			description = *artifact.Description
		}

		content := make([]map[string]any, 0, len(artifact.Parts))

		for _, part := range artifact.Parts {
			switch part.Type {
			case a2a.PartTypeText:
				if part.Text != "" {
					content = append(content, map[string]any{"type": "text", "value": part.Text})
				}
			case a2a.PartTypeData:
				if len(part.Data) > 0 {
					content = append(content, map[string]any{"type": "data", "value": part.Data})
				}
			}
		}

		summaries = append(summaries, map[string]any{
			"name":        name,
			"description": description,
			"content":     content,
		})
	}

	return summaries
}
