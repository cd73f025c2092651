// internal/services/errors.go
package services

import "fmt"

// RequestValidationError marks client input outside the contract. Handlers
// map it to HTTP 400; it is always raised before any external call.
type RequestValidationError struct {
	Field  string
	Reason string
}

func (e *RequestValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// ContentFetchError is raised when a content identifier cannot be resolved
// through the storage gateway. Recoverable: the orchestrator substitutes a
// placeholder payload instead of aborting.
type ContentFetchError struct {
	CID string
	Err error
}

func (e *ContentFetchError) Error() string {
	return fmt.Sprintf("failed to fetch content %s: %v", e.CID, e.Err)
}

func (e *ContentFetchError) Unwrap() error { return e.Err }

// PublishError is raised when a document cannot be pinned to the storage
// network. Fatal: nothing can be registered without a published address.
type PublishError struct {
	Detail string
	Err    error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to publish content: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("failed to publish content: %s", e.Detail)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ChainSubmissionError is raised by any ledger failure: signer errors,
// RPC failures, reverts. Fatal and surfaced verbatim; documents published
// before the failure stay orphaned on the storage network.
type ChainSubmissionError struct {
	Op  string
	Err error
}

func (e *ChainSubmissionError) Error() string {
	return fmt.Sprintf("chain %s failed: %v", e.Op, e.Err)
}

func (e *ChainSubmissionError) Unwrap() error { return e.Err }
