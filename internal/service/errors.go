package service

import (
	"errors"
	"fmt"
)

// ErrStateNotFound covers absent, expired and already consumed states. The
// callers surface it with a generic message so the response leaks nothing
// about which of the three it was.
var ErrStateNotFound = errors.New("invalid or expired state parameter")

// ConfigurationError reports a missing required setting. Never retried.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required setting: %s", e.Setting)
}

// ValidationError reports a missing or malformed caller-supplied field. The
// message is safe to return verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamExchangeError means the provider rejected the code exchange. Body
// carries the provider's raw error text for operator diagnosis.
type UpstreamExchangeError struct {
	Body string
	Err  error
}

func (e *UpstreamExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.Body)
}

func (e *UpstreamExchangeError) Unwrap() error {
	return e.Err
}

// IdentityFetchError means the token exchange succeeded but the identity
// lookup failed even after the fallback credential. The obtained tokens are
// discarded.
type IdentityFetchError struct {
	Err error
}

func (e *IdentityFetchError) Error() string {
	return fmt.Sprintf("identity lookup failed: %v", e.Err)
}

func (e *IdentityFetchError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed state-store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
