package hostagent

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/wognsths/MarketSage/pkg/errors"
)

// AgentInfo is the listing view of a registered agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

/*
Directory holds the set of known remote agents keyed by name. Registration
is last-write-wins; replacing an entry does not affect tasks already in
flight on the previous connection.
*/
type Directory struct {
	agents *sync.Map
}

func NewDirectory() *Directory {
	return &Directory{
		agents: new(sync.Map),
	}
}

/*
Register inserts or replaces the entry for the connection's agent name.
*/
func (directory *Directory) Register(conn *RemoteConnection) {
	log.Info("registering agent", "name", conn.Card().Name)
	directory.agents.Store(conn.Card().Name, conn)
}

/*
Resolve returns the connection for name, or an error when the agent is
unknown or has no usable transport.
*/
func (directory *Directory) Resolve(name string) (*RemoteConnection, error) {
	entry, ok := directory.agents.Load(name)

	if !ok {
		return nil, &errors.AgentNotFound{Name: name}
	}

	conn := entry.(*RemoteConnection)

	if !conn.Available() {
		return nil, &errors.ConnectionUnavailable{Name: name}
	}

	return conn, nil
}

/*
List returns name and description pairs for all registered agents. Order is
not guaranteed.
*/
func (directory *Directory) List() []AgentInfo {
	agents := make([]AgentInfo, 0)

	directory.agents.Range(func(key, value any) bool {
		card := value.(*RemoteConnection).Card()

		description := ""
		if card.Description != nil {
			description = *card.Description
		}

		agents = append(agents, AgentInfo{
			Name:        card.Name,
			Description: description,
		})
		return true
	})

	return agents
}
