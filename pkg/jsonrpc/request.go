package jsonrpc

import "encoding/json"

type Request struct {
	Message
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

/*
NewRequest builds a request envelope for the given method, marshalling the
params in place.
*/
func NewRequest(id any, method string, params any) (Request, error) {
	req := Request{
		Message: Message{
			MessageIdentifier: MessageIdentifier{ID: id},
			JSONRPC:           "2.0",
		},
		Method: method,
	}

	if params != nil {
		buf, err := json.Marshal(params)
		if err != nil {
			return req, err
		}
		req.Params = buf
	}

	return req, nil
}
