package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

/*
CardResolver fetches the capability descriptor of a remote agent from its
well-known discovery endpoint.
*/
type CardResolver struct {
	baseURL string
	conn    *http.Client
}

/*
NewCardResolver creates a resolver for the agent served at baseURL.
*/
func NewCardResolver(baseURL string) *CardResolver {
	return &CardResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		conn: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

/*
GetAgentCard fetches the agent card from <baseURL>/.well-known/agent.json.
Failures propagate as registration errors; discovery is never retried here.
*/
func (resolver *CardResolver) GetAgentCard(ctx context.Context) (*AgentCard, error) {
	url := resolver.baseURL + "/.well-known/agent.json"

	log.Debug("fetching agent card", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	resp, err := resolver.conn.Do(req)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("agent card endpoint returned non-OK status: %d, body: %s", resp.StatusCode, string(body))
	}

	var card AgentCard

	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}

	log.Debug("resolved agent card", "name", card.Name, "streaming", card.Capabilities.Streaming)

	return &card, nil
}
