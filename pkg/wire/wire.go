// Package wire defines the JSON request/response bodies exchanged between
// nodes and between an embedder and a node, exactly as laid out in the
// external interfaces: one message type per peer-to-peer phase message,
// and one snapshot type for the state endpoint.
package wire

import "github.com/quorumkit/benor-node/pkg/value"

// MessageRequest is the POST body for /message.
type MessageRequest struct {
	Phase int         `json:"phase"` // 1 or 2
	Value value.Value `json:"value"`
	K     uint64      `json:"k"`
	From  int         `json:"from"`
}

// StateResponse is the GET /getState body. For a faulty node every
// pointer field is nil, which encoding/json renders as JSON null.
type StateResponse struct {
	Killed  bool         `json:"killed"`
	X       *value.Value `json:"x"`
	Decided *bool        `json:"decided"`
	K       *uint64      `json:"k"`
}

// SuccessResponse is the 200 body for /start, /stop and /message.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the error body for any failing endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ReadyResponse is the GET /ready body.
type ReadyResponse struct {
	Ready bool `json:"ready"`
}
