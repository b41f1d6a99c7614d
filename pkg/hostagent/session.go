package hostagent

// Session state is conversation-scoped mutable bookkeeping. The store is an
// explicitly constructed, injected instance; nothing here is process-global.
// The in-memory implementation expires idle conversations so abandoned
// sessions do not accumulate.

import (
	"sync"
	"time"
)

/*
SessionState is the per-conversation state the coordinator mutates after
every task response.
*/
type SessionState struct {
	// SessionID is generated once and persists for the conversation lifetime.
	SessionID string
	// Active reports whether a remote task is currently outstanding.
	Active bool
	// AgentName is the active agent for the conversation.
	AgentName string
	// TaskID is reused across turns with the same agent until the task
	// reaches a terminal state.
	TaskID string
	// MessageID is the last-seen message id, chained into the next turn.
	MessageID string
	// InputMetadata is carried-over metadata for the next outgoing message.
	InputMetadata map[string]any
	// SkipSummarization signals the caller to skip automated summarization.
	SkipSummarization bool
	// Escalate signals that control must return to the user.
	Escalate bool
}

type SessionStore interface {
	Get(conversationID string) (*SessionState, bool)
	Set(conversationID string, state *SessionState)
	Delete(conversationID string)
}

type sessionEntry struct {
	state     *SessionState
	expiresAt time.Time
}

// InMemorySessionStore is the default implementation.
type InMemorySessionStore struct {
	mu         sync.RWMutex
	data       map[string]*sessionEntry
	expiration time.Duration
}

func NewInMemorySessionStore(expiration time.Duration) *InMemorySessionStore {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	store := &InMemorySessionStore{
		data:       make(map[string]*sessionEntry),
		expiration: expiration,
	}

	go store.cleanupExpired()

	return store
}

func (store *InMemorySessionStore) Get(id string) (*SessionState, bool) {
	store.mu.RLock()
	entry, ok := store.data[id]
	store.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		store.Delete(id)
		return nil, false
	}

	return entry.state, true
}

func (store *InMemorySessionStore) Set(id string, state *SessionState) {
	store.mu.Lock()
	store.data[id] = &sessionEntry{
		state:     state,
		expiresAt: time.Now().Add(store.expiration),
	}
	store.mu.Unlock()
}

func (store *InMemorySessionStore) Delete(id string) {
	store.mu.Lock()
	delete(store.data, id)
	store.mu.Unlock()
}

func (store *InMemorySessionStore) cleanupExpired() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		store.mu.Lock()
		for id, entry := range store.data {
			if now.After(entry.expiresAt) {
				delete(store.data, id)
			}
		}
		store.mu.Unlock()
	}
}
