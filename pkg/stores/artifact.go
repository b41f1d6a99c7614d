package stores

// ArtifactStore is the collaborator that persists file-part payloads. The
// coordinator only writes; it never reads artifacts back.

import (
	"context"
	"sync"
)

type ArtifactStore interface {
	Put(ctx context.Context, id string, mimeType string, data []byte) error
}

type storedArtifact struct {
	MimeType string
	Data     []byte
}

// InMemoryArtifactStore keeps artifacts in a map. Suitable for development
// and tests.
type InMemoryArtifactStore struct {
	mu      sync.RWMutex
	objects map[string]storedArtifact
}

func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	return &InMemoryArtifactStore{
		objects: make(map[string]storedArtifact),
	}
}

func (store *InMemoryArtifactStore) Put(
	ctx context.Context, id string, mimeType string, data []byte,
) error {
	store.mu.Lock()
	store.objects[id] = storedArtifact{
		MimeType: mimeType,
		Data:     append([]byte(nil), data...),
	}
	store.mu.Unlock()

	return nil
}

/*
Get returns a stored artifact's payload and mime type. Used by tests; the
coordinator itself never reads back.
*/
func (store *InMemoryArtifactStore) Get(id string) ([]byte, string, bool) {
	store.mu.RLock()
	obj, ok := store.objects[id]
	store.mu.RUnlock()

	if !ok {
		return nil, "", false
	}

	return obj.Data, obj.MimeType, true
}
