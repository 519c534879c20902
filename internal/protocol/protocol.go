// Package protocol defines the line-delimited JSON request and response
// envelopes spoken on the daemon socket.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Request kinds understood by this layer. The envelope is open: any other
// kind is forwarded opaquely to the analysis engine.
const (
	// KindIncrementalUpdate carries changed file paths; the session layer
	// synthesizes this variant from watcher batches
	KindIncrementalUpdate = "IncrementalUpdate"
	// KindTypeErrors requests diagnostics for the given files, or all files
	KindTypeErrors = "TypeErrors"
	// KindStats requests server statistics
	KindStats = "Stats"
	// KindPing requests a liveness response
	KindPing = "Ping"
)

// Response kinds constructed by the daemon
const (
	// KindError carries a human-readable failure message
	KindError = "Error"
	// KindOk acknowledges a request with no payload
	KindOk = "Ok"
	// KindPong answers a ping
	KindPong = "Pong"
)

// Diagnostic is a single analysis finding for a source file
type Diagnostic struct {
	Path        string `json:"path"`
	Line        int    `json:"line"`
	Column      int    `json:"column,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// Request is the inbound envelope: a JSON object with a required string
// kind. Raw preserves the full document so unrecognized variants reach the
// engine unmodified.
type Request struct {
	Kind  string   `json:"kind"`
	Paths []string `json:"paths,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Response is the outbound envelope. Errors uses omitzero rather than
// omitempty: diagnostic responses always carry the errors array, even when
// empty, while the other kinds omit the field entirely.
type Response struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message,omitempty"`
	Errors  []Diagnostic           `json:"errors,omitzero"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// DecodeRequest parses and validates one request line. The returned error
// message is suitable for an error response: the connection stays open and
// the caller reports the message to the client.
func DecodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("Malformed JSON request: %v", err)
	}

	if req.Kind == "" {
		return nil, fmt.Errorf("Invalid request: missing kind")
	}

	req.Raw = append(json.RawMessage(nil), line...)
	return &req, nil
}

// Encode serializes a response as a single JSON document without trailing
// newline; the connection handler appends the line delimiter.
func (r *Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}

// NewIncrementalUpdate builds the synthetic update request for a batch of
// changed absolute paths. Path order is preserved.
func NewIncrementalUpdate(paths []string) *Request {
	return &Request{
		Kind:  KindIncrementalUpdate,
		Paths: append([]string(nil), paths...),
	}
}

// NewErrorResponse builds the error response variant
func NewErrorResponse(message string) *Response {
	return &Response{
		Kind:    KindError,
		Message: message,
	}
}

// NewOkResponse builds an empty acknowledgement
func NewOkResponse() *Response {
	return &Response{Kind: KindOk}
}

// NewPongResponse answers a ping
func NewPongResponse() *Response {
	return &Response{Kind: KindPong}
}

// NewTypeErrorsResponse carries diagnostics back to the client
func NewTypeErrorsResponse(errors []Diagnostic) *Response {
	if errors == nil {
		errors = []Diagnostic{}
	}
	return &Response{
		Kind:   KindTypeErrors,
		Errors: errors,
	}
}

// NewStatsResponse carries server statistics
func NewStatsResponse(data map[string]interface{}) *Response {
	return &Response{
		Kind: KindStats,
		Data: data,
	}
}
