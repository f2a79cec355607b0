package upstream

import "fmt"

// Error types shared by the retrieval and completion gateways. The server's
// error middleware matches on these with errors.As to pick the HTTP status,
// so gateways never talk to fiber directly.

// ConfigError means a required setting (API key, endpoint URL) is missing.
// Always maps to HTTP 500 and is never retried.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// StatusError is a non-2xx reply from an upstream service. The upstream
// status code and body are surfaced to the caller unchanged.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// TransportError is a network-level failure (timeout, connection reset,
// DNS). Maps to HTTP 502.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ContractError is a well-formed 2xx reply missing expected fields (no
// choices, empty content). Terminal for generation (502); the rewriter
// downgrades it to a warning and keeps the original query.
type ContractError struct {
	Service string
	Reason  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s violated response contract: %s", e.Service, e.Reason)
}
