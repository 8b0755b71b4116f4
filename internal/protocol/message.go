// Package protocol defines the line-oriented JSON wire format spoken between
// client and server: exactly one JSON object per line, in both directions.
//
// Client -> server lines are Requests. Server -> client lines are either
// Responses (one per request, in request order) or Events pushed by the
// change broadcaster; the two are told apart by the "event" key.
package protocol

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// MaxLineBytes caps a single protocol line. Lines beyond this are treated as
// malformed input.
const MaxLineBytes = 1 << 20

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is one command issued by a client.
type Request struct {
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Response answers exactly one Request. Message is always human-readable,
// regardless of outcome.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Event is a server push notifying connected clients that shared state
// changed. Delivery is best-effort.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// DecodeRequest parses one request line.
func DecodeRequest(line []byte) (*Request, error) {
	req := &Request{}
	if err := codec.Unmarshal(line, req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if req.Action == "" {
		return nil, fmt.Errorf("malformed request: missing action")
	}
	return req, nil
}

// EncodeLine marshals v and appends the line terminator.
func EncodeLine(v any) ([]byte, error) {
	b, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Unmarshal decodes a payload (request data or response data) into out.
func Unmarshal(data []byte, out any) error {
	return codec.Unmarshal(data, out)
}

// Marshal encodes v with the shared codec.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}
