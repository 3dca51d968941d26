package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means no usable provider credentials or endpoint are
	// present. It is not retried; auto-reply declines until settings change.
	ErrNotConfigured = errors.New("no usable llm provider configured")

	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

// ProviderError wraps any failure of the LLM backend boundary: network
// errors, non-2xx responses, malformed bodies and timeouts. The orchestrator
// never sees a raw provider error.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SendError wraps a transport failure after a successful generation. The
// generated text stays in the in-memory history.
type SendError struct {
	ChatID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to chat %s: %v", e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
