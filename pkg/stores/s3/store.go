package s3

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

/*
Store persists task artifacts in an S3 bucket, one object per artifact file
id. It satisfies the stores.ArtifactStore interface.
*/
type Store struct {
	conn *Conn
}

func NewStore(conn *Conn) *Store {
	return &Store{conn: conn}
}

/*
Put uploads one artifact payload under its file id.
*/
func (store *Store) Put(
	ctx context.Context, id string, mimeType string, data []byte,
) error {
	if err := store.conn.Put(ctx, id, mimeType, data); err != nil {
		log.Error("failed to store artifact", "id", id, "error", err)
		return fmt.Errorf("failed to store artifact %s: %w", id, err)
	}

	log.Info("stored artifact", "id", id, "bytes", len(data))
	return nil
}
