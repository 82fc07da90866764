package rag

import "fmt"

// ProviderError wraps a failure from the model endpoint (network error,
// timeout, or non-success response). It is caught at the orchestrator
// boundary and never propagated raw to HTTP callers.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("model provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RetrievalError wraps a failure from the retrieval collaborator. Same
// handling as ProviderError.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
