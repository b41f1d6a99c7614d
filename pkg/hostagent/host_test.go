package hostagent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wognsths/MarketSage/pkg/a2a"
	"github.com/wognsths/MarketSage/pkg/errors"
	"github.com/wognsths/MarketSage/pkg/stores"
)

type recordingSink struct {
	mu     sync.Mutex
	events []a2a.TaskEvent
	cards  []a2a.AgentCard
}

func (sink *recordingSink) OnTaskUpdate(ctx context.Context, event a2a.TaskEvent, card a2a.AgentCard) {
	sink.mu.Lock()
	sink.events = append(sink.events, event)
	sink.cards = append(sink.cards, card)
	sink.mu.Unlock()
}

func (sink *recordingSink) all() []a2a.TaskEvent {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]a2a.TaskEvent(nil), sink.events...)
}

func agentWithCard(t *testing.T, card a2a.AgentCard) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/agent.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(card)
	}))
}

func newTestHost(sink EventSink) (*HostAgent, *stores.InMemoryArtifactStore, *InMemorySessionStore) {
	sessions := NewInMemorySessionStore(time.Hour)
	artifacts := stores.NewInMemoryArtifactStore()

	return NewHostAgent(sessions, artifacts, sink), artifacts, sessions
}

func TestSendTaskCompleted(t *testing.T) {
	Convey("Given a registered non-streaming agent that completes tasks", t, func() {
		var received a2a.TaskSendParams

		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			received = params

			return a2a.Task{
				ID:        params.ID,
				SessionID: params.SessionID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateCompleted,
					Message: a2a.NewTextMessage("agent", "Plan: step1, step2"),
				},
			}
		})
		defer server.Close()

		sink := &recordingSink{}
		host, _, sessions := newTestHost(sink)
		host.RegisterAgentCard(a2a.AgentCard{Name: "planner-agent", URL: server.URL})

		Convey("When sending a task on a fresh conversation", func() {
			result, err := host.SendTask(context.Background(), "planner-agent", "build a plan", "")

			So(err, ShouldBeNil)

			Convey("A session and task id should be generated", func() {
				So(result.SessionID, ShouldNotBeEmpty)
				So(result.TaskID, ShouldNotBeEmpty)
			})

			Convey("The response should hold the flattened text", func() {
				So(result.State, ShouldEqual, a2a.TaskStateCompleted)
				So(result.Parts, ShouldResemble, []any{"Plan: step1, step2"})
				So(result.Escalate, ShouldBeFalse)
				So(result.SkipSummarization, ShouldBeFalse)
			})

			Convey("The outgoing request should carry the conversation metadata", func() {
				So(received.SessionID, ShouldEqual, result.SessionID)
				So(received.Metadata["conversation_id"], ShouldEqual, result.SessionID)
				So(received.Message.Metadata["conversation_id"], ShouldEqual, result.SessionID)
				So(received.Message.Metadata["message_id"], ShouldNotBeEmpty)
				So(received.AcceptedOutputModes, ShouldContain, "text")
			})

			Convey("The session should be deactivated with its task id cleared", func() {
				state, ok := sessions.Get(result.SessionID)

				So(ok, ShouldBeTrue)
				So(state.Active, ShouldBeFalse)
				So(state.TaskID, ShouldBeEmpty)
				So(state.AgentName, ShouldEqual, "planner-agent")
			})

			Convey("The sink should see the task and the synthesized summary", func() {
				events := sink.all()

				So(len(events), ShouldEqual, 2)

				_, ok := events[0].(*a2a.Task)
				So(ok, ShouldBeTrue)

				summary, ok := events[1].(*a2a.TaskStatusUpdateEvent)
				So(ok, ShouldBeTrue)
				So(summary.Status.State, ShouldEqual, a2a.TaskStateCompleted)
				So(summary.Status.Message.Role, ShouldEqual, "agent")
				So(summary.Status.Message.Text(), ShouldEqual, "Plan: step1, step2")
				So(summary.SessionID, ShouldEqual, result.SessionID)
			})
		})
	})
}

func TestSendTaskInputRequired(t *testing.T) {
	Convey("Given an agent that needs more input", t, func() {
		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			return a2a.Task{
				ID:        params.ID,
				SessionID: params.SessionID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateInputReq,
					Message: a2a.NewTextMessage("agent", "Which ticker?"),
				},
			}
		})
		defer server.Close()

		host, _, sessions := newTestHost(&recordingSink{})
		host.RegisterAgentCard(a2a.AgentCard{Name: "market-analyst", URL: server.URL})

		Convey("When sending a task", func() {
			result, err := host.SendTask(context.Background(), "market-analyst", "analyze", "conv-1")

			So(err, ShouldBeNil)

			Convey("Both escalation flags should be set", func() {
				So(result.State, ShouldEqual, a2a.TaskStateInputReq)
				So(result.Escalate, ShouldBeTrue)
				So(result.SkipSummarization, ShouldBeTrue)
			})

			Convey("The session should stay active and keep the task id", func() {
				state, ok := sessions.Get("conv-1")

				So(ok, ShouldBeTrue)
				So(state.Active, ShouldBeTrue)
				So(state.TaskID, ShouldEqual, result.TaskID)
			})

			Convey("A follow-up turn should reuse the same task id", func() {
				followUp, err := host.SendTask(context.Background(), "market-analyst", "ACME", "conv-1")

				So(err, ShouldBeNil)
				So(followUp.TaskID, ShouldEqual, result.TaskID)
				So(followUp.SessionID, ShouldEqual, "conv-1")
			})
		})
	})
}

func TestSendTaskMessageChaining(t *testing.T) {
	Convey("Given an agent that answers across turns", t, func() {
		var received []a2a.TaskSendParams

		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			received = append(received, params)

			return a2a.Task{
				ID:        params.ID,
				SessionID: params.SessionID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateCompleted,
					Message: a2a.NewTextMessage("agent", "done"),
				},
			}
		})
		defer server.Close()

		host, _, sessions := newTestHost(&recordingSink{})
		host.RegisterAgentCard(a2a.AgentCard{Name: "chatty-agent", URL: server.URL})

		Convey("When the first turn completes", func() {
			_, err := host.SendTask(context.Background(), "chatty-agent", "first", "conv-m")

			So(err, ShouldBeNil)

			state, ok := sessions.Get("conv-m")
			So(ok, ShouldBeTrue)

			firstRotated := state.MessageID

			Convey("The rotated message id should be recorded in the session", func() {
				So(firstRotated, ShouldNotBeEmpty)
				So(firstRotated, ShouldNotEqual, received[0].Message.Metadata["message_id"])
			})

			Convey("The next turn should chain off the recorded message id", func() {
				_, err := host.SendTask(context.Background(), "chatty-agent", "second", "conv-m")

				So(err, ShouldBeNil)
				So(received, ShouldHaveLength, 2)
				So(received[1].Message.Metadata["message_id"], ShouldEqual, firstRotated)
			})
		})
	})
}

func TestSendTaskTerminalErrors(t *testing.T) {
	Convey("Given an agent that fails tasks", t, func() {
		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			return a2a.Task{
				ID:     params.ID,
				Status: a2a.TaskStatus{State: a2a.TaskStateFailed},
			}
		})
		defer server.Close()

		host, _, sessions := newTestHost(&recordingSink{})
		host.RegisterAgentCard(a2a.AgentCard{Name: "flaky-agent", URL: server.URL})

		Convey("The failure should surface as a typed error", func() {
			result, err := host.SendTask(context.Background(), "flaky-agent", "do it", "conv-f")

			So(result, ShouldBeNil)
			So(err, ShouldHaveSameTypeAs, &errors.TaskFailed{})

			Convey("The session state should still have been persisted", func() {
				state, ok := sessions.Get("conv-f")

				So(ok, ShouldBeTrue)
				So(state.Active, ShouldBeFalse)
				So(state.TaskID, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an agent that cancels tasks", t, func() {
		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			return a2a.Task{
				ID:     params.ID,
				Status: a2a.TaskStatus{State: a2a.TaskStateCanceled},
			}
		})
		defer server.Close()

		host, _, _ := newTestHost(&recordingSink{})
		host.RegisterAgentCard(a2a.AgentCard{Name: "moody-agent", URL: server.URL})

		result, err := host.SendTask(context.Background(), "moody-agent", "do it", "conv-c")

		So(result, ShouldBeNil)
		So(err, ShouldHaveSameTypeAs, &errors.TaskCanceled{})
	})

	Convey("Given an unknown agent name", t, func() {
		host, _, _ := newTestHost(&recordingSink{})

		result, err := host.SendTask(context.Background(), "ghost", "hello", "")

		So(result, ShouldBeNil)
		So(err, ShouldHaveSameTypeAs, &errors.AgentNotFound{})
	})
}

func TestSendTaskFileResponse(t *testing.T) {
	Convey("Given an agent that answers with a file artifact", t, func() {
		encoded := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 report"))

		server := syncAgent(t, func(params a2a.TaskSendParams) a2a.Task {
			name := "report.pdf"
			mimeType := "application/pdf"

			return a2a.Task{
				ID:        params.ID,
				SessionID: params.SessionID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateCompleted,
					Message: a2a.NewTextMessage("agent", "report attached"),
				},
				Artifacts: []a2a.Artifact{{
					Name: &name,
					Parts: []a2a.Part{{
						Type: a2a.PartTypeFile,
						File: &a2a.FilePart{
							Name:     &name,
							MimeType: &mimeType,
							Bytes:    encoded,
						},
					}},
				}},
			}
		})
		defer server.Close()

		host, artifacts, _ := newTestHost(&recordingSink{})
		host.RegisterAgentCard(a2a.AgentCard{Name: "report-agent", URL: server.URL})

		Convey("When sending a task", func() {
			result, err := host.SendTask(context.Background(), "report-agent", "make a report", "")

			So(err, ShouldBeNil)

			Convey("The response should hold the text and the file reference", func() {
				So(result.Parts, ShouldResemble, []any{
					"report attached",
					map[string]any{"artifact-file-id": "report.pdf"},
				})
			})

			Convey("The file should be escalated back to the user", func() {
				So(result.Escalate, ShouldBeTrue)
				So(result.SkipSummarization, ShouldBeTrue)
			})

			Convey("The payload should land in the artifact store", func() {
				data, mimeType, ok := artifacts.Get("report.pdf")

				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, "%PDF-1.4 report")
				So(mimeType, ShouldEqual, "application/pdf")
			})
		})
	})
}

func TestSendTaskStreamingAgent(t *testing.T) {
	Convey("Given a registered streaming agent", t, func() {
		server := streamingAgent(t,
			a2a.TaskStatusUpdateEvent{
				ID:     "ignored-by-fold",
				Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
			},
			a2a.TaskStatusUpdateEvent{
				ID: "ignored-by-fold",
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateCompleted,
					Message: a2a.NewTextMessage("agent", "stream done"),
				},
				Final: true,
			},
		)
		defer server.Close()

		sink := &recordingSink{}
		host, _, sessions := newTestHost(sink)
		host.RegisterAgentCard(a2a.AgentCard{
			Name:         "stream-agent",
			URL:          server.URL,
			Capabilities: a2a.AgentCapabilities{Streaming: true},
		})

		Convey("When sending a task", func() {
			result, err := host.SendTask(context.Background(), "stream-agent", "go", "conv-s")

			So(err, ShouldBeNil)

			Convey("The folded final state should be returned", func() {
				So(result.State, ShouldEqual, a2a.TaskStateCompleted)
				So(result.Parts, ShouldResemble, []any{"stream done"})
			})

			Convey("The session should be closed out", func() {
				state, ok := sessions.Get("conv-s")

				So(ok, ShouldBeTrue)
				So(state.Active, ShouldBeFalse)
				So(state.TaskID, ShouldBeEmpty)
			})

			Convey("The sink should see every stream update plus the summary", func() {
				// submitted + working + completed + synthesized summary
				So(len(sink.all()), ShouldEqual, 4)
			})
		})
	})
}

func TestRegisterAgent(t *testing.T) {
	Convey("Given a discoverable agent", t, func() {
		description := "does research"

		server := agentWithCard(t, a2a.AgentCard{
			Name:        "research-agent",
			Description: &description,
			URL:         "http://research-agent.example.com",
			Version:     "1.0.0",
		})
		defer server.Close()

		host, _, _ := newTestHost(&recordingSink{})

		Convey("Registration by address should resolve the card", func() {
			err := host.RegisterAgent(context.Background(), server.URL)

			So(err, ShouldBeNil)

			agents := host.ListAgents()
			So(agents, ShouldHaveLength, 1)
			So(agents[0].Name, ShouldEqual, "research-agent")
			So(agents[0].Description, ShouldEqual, "does research")
		})

		Convey("Registration against a dead address should fail", func() {
			err := host.RegisterAgent(context.Background(), "http://127.0.0.1:1")

			So(err, ShouldNotBeNil)
		})
	})
}
