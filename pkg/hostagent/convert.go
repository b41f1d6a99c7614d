package hostagent

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/wognsths/MarketSage/pkg/a2a"
	"github.com/wognsths/MarketSage/pkg/stores"
)

/*
convertParts normalizes a slice of typed parts into plain response items:
text parts become strings, data parts become their payload map, file parts
are handed to the artifact store and replaced with a reference.
*/
func convertParts(
	ctx context.Context,
	parts []a2a.Part,
	state *SessionState,
	artifacts stores.ArtifactStore,
) []any {
	converted := make([]any, 0, len(parts))

	for _, part := range parts {
		converted = append(converted, convertPart(ctx, part, state, artifacts))
	}

	return converted
}

func convertPart(
	ctx context.Context,
	part a2a.Part,
	state *SessionState,
	artifacts stores.ArtifactStore,
) any {
	switch part.Type {
	case a2a.PartTypeText:
		return part.Text

	case a2a.PartTypeData:
		return part.Data

	case a2a.PartTypeFile:
		if part.File == nil {
			return fmt.Sprintf("Unknown type: %s", part.Type)
		}

		fileID := "unnamed"
		if part.File.Name != nil {
			fileID = *part.File.Name
		}

		mimeType := "application/octet-stream"
		if part.File.MimeType != nil {
			mimeType = *part.File.MimeType
		}

		data, err := base64.StdEncoding.DecodeString(part.File.Bytes)

		if err != nil {
			log.Error("failed to decode file part", "file", fileID, "error", err)
		} else if err := artifacts.Put(ctx, fileID, mimeType, data); err != nil {
			log.Error("failed to store artifact", "file", fileID, "error", err)
		}

		// A file cannot be summarized inline; hand control back to the user.
		state.SkipSummarization = true
		state.Escalate = true

		return map[string]any{"artifact-file-id": fileID}

	default:
		return fmt.Sprintf("Unknown type: %s", part.Type)
	}
}
