package a2a

import "strings"

/*
Message represents all non-artifact communication between client and agent.
*/
type Message struct {
	Role     string         `json:"role"` // "user" or "agent"
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

/*
NewTextMessage builds a message holding a single text part.
*/
func NewTextMessage(role, text string) *Message {
	return &Message{
		Role:  role,
		Parts: []Part{{Type: PartTypeText, Text: text}},
	}
}

/*
Text joins the text parts of the message, in order. Non-text parts are
skipped.
*/
func (message *Message) Text() string {
	var sb strings.Builder

	for _, part := range message.Parts {
		if part.Type == PartTypeText && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	return sb.String()
}
