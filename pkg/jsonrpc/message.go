package jsonrpc

// MessageIdentifier identifies a JSON-RPC message. Responses must carry the
// same ID as the request they relate to.
type MessageIdentifier struct {
	// ID is the request identifier. Can be a string, number, or null.
	ID any `json:"id,omitempty"`
}

// Message is the base shape shared by every JSON-RPC message.
type Message struct {
	MessageIdentifier
	// JSONRPC specifies the JSON-RPC version. Must be "2.0"
	JSONRPC string `json:"jsonrpc,omitempty"`
}

// Error represents a JSON-RPC error object
type Error struct {
	// Code is a number indicating the error type that occurred
	Code int `json:"code"`
	// Message is a string providing a short description of the error
	Message string `json:"message"`
	// Data is optional additional data about the error
	Data any `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Reserved JSON-RPC error codes the host actually maps.
var (
	ErrParseError = &Error{Code: -32700, Message: "Parse error"}
	ErrInternal   = &Error{Code: -32603, Message: "Internal error"}
)
