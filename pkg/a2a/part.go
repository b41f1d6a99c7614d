package a2a

import "fmt"

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

/*
Part is a discriminated union over Text, File and Data parts. We keep it
simple by embedding all optional fields in a single struct, which avoids
heavy custom JSON marshalling logic while remaining spec-compliant.

Exactly one of Text, File, or Data should be populated according to the
Type field. This is not enforced at the struct level; use Validate when
the constraint matters.
*/
type Part struct {
	Type PartType `json:"type"`

	Text string         `json:"text,omitempty"`
	File *FilePart      `json:"file,omitempty"`
	Data map[string]any `json:"data,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

/*
Validate checks that the Part follows the discriminated union pattern.
*/
func (part *Part) Validate() error {
	switch part.Type {
	case PartTypeText:
		if part.Text == "" {
			return fmt.Errorf("text part has empty text field")
		}
	case PartTypeFile:
		if part.File == nil {
			return fmt.Errorf("file part has nil file field")
		}
		return part.File.Validate()
	case PartTypeData:
		if len(part.Data) == 0 {
			return fmt.Errorf("data part has empty data field")
		}
	default:
		return fmt.Errorf("unknown part type: %s", part.Type)
	}

	return nil
}

/*
FilePart carries a named binary payload, base64-encoded on the wire. One of
Bytes or URI should be set, never both.
*/
type FilePart struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`

	Bytes string `json:"bytes,omitempty"` // base64 encoded
	URI   string `json:"uri,omitempty"`
}

/*
Validate checks the bytes-or-uri oneof constraint.
*/
func (fp *FilePart) Validate() error {
	if fp.Bytes != "" && fp.URI != "" {
		return fmt.Errorf("file part cannot have both bytes and uri fields set")
	}

	if fp.Bytes == "" && fp.URI == "" {
		return fmt.Errorf("file part must have either bytes or uri field set")
	}

	return nil
}
