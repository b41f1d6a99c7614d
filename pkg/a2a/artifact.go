package a2a

/*
Artifact is a named bundle of output parts produced by a remote agent
outside the primary status message.
*/
type Artifact struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Index       int            `json:"index,omitempty"`
	LastChunk   *bool          `json:"lastChunk,omitempty"`
}
