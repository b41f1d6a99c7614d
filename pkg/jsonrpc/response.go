package jsonrpc

import "encoding/json"

type Response struct {
	Message
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}
