package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/wognsths/MarketSage/pkg/jsonrpc"
)

/*
Client talks the A2A protocol to one remote agent. It wraps the JSON-RPC
endpoint for single-shot sends and the SSE variant for streaming agents.
*/
type Client struct {
	baseURL string
	conn    *http.Client
}

/*
NewClient creates a new A2A client for the agent served at baseURL.
*/
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		conn:    &http.Client{},
	}
}

/*
SendTask sends a task message to the agent and returns the resulting task.
*/
func (client *Client) SendTask(ctx context.Context, params TaskSendParams) (*Task, error) {
	req, err := jsonrpc.NewRequest(1, "tasks/send", params)

	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)

	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, client.baseURL+"/rpc", bytes.NewReader(body),
	)

	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.conn.Do(httpReq)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var rpcResp jsonrpc.Response

	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%w: %v", jsonrpc.ErrParseError, err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	var task Task

	if err := json.Unmarshal(rpcResp.Result, &task); err != nil {
		return nil, fmt.Errorf("%w: %v", jsonrpc.ErrParseError, err)
	}

	return &task, nil
}

/*
SendTaskSubscribe sends a task message and consumes the SSE response stream,
invoking handler for every decoded event. The handler returns false to stop
consuming (typically after a final status). Returns once the stream ends or
the handler stops it.
*/
func (client *Client) SendTaskSubscribe(
	ctx context.Context,
	params TaskSendParams,
	handler func(TaskEvent) bool,
) error {
	req, err := jsonrpc.NewRequest(1, "tasks/sendSubscribe", params)

	if err != nil {
		return err
	}

	body, err := json.Marshal(req)

	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, client.baseURL+"/rpc", bytes.NewReader(body),
	)

	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.conn.Do(httpReq)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	for {
		data, err := readSSE(reader)

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if data == "" {
			continue
		}

		event, err := UnmarshalTaskEvent([]byte(data))

		if err != nil {
			log.Error("failed to decode task event", "error", err, "data", data)
			continue
		}

		if !handler(event) {
			return nil
		}
	}
}

/*
readSSE consumes one line of a Server-Sent Events stream and returns its
data payload, or "" for comments and keep-alives.
*/
func readSSE(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')

	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)

	if line == "" || strings.HasPrefix(line, ":") { // comments / keep-alive
		return "", nil
	}

	if !strings.HasPrefix(line, "data: ") {
		return "", errors.New("invalid SSE line")
	}

	return strings.TrimPrefix(line, "data: "), nil
}
