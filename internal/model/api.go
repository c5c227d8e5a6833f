package model

import (
	"encoding/json"

	"expenserelay/internal/relay"
)

// CallableRequest is the envelope a callable client posts. Data is a pointer
// so that a missing field can be told apart from an empty object.
type CallableRequest struct {
	Data *relay.Request `json:"data"`
}

type CallableResponse struct {
	Result json.RawMessage `json:"result"`
}

type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CallableErrorResponse struct {
	Error CallableError `json:"error"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}
