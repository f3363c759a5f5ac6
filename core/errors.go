package core

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by collaborators that have no credentials or
// endpoint. Every stage depending on such a collaborator must degrade to
// its deterministic fallback instead of failing the turn.
var ErrNotConfigured = errors.New("collaborator not configured")

// ValidationError reports a bad platform/device combination or otherwise
// malformed request. It is the only error class that short-circuits the
// pipeline into a validation response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// AgentError reports a failed domain collaborator call. The pipeline turns
// it into a localized apology with a retry suggestion.
type AgentError struct {
	Agent string
	Err   error
}

func (e *AgentError) Error() string { return fmt.Sprintf("agent %s: %v", e.Agent, e.Err) }

func (e *AgentError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAgent reports whether err is (or wraps) an AgentError.
func IsAgent(err error) bool {
	var ae *AgentError
	return errors.As(err, &ae)
}
