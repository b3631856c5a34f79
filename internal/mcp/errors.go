package mcp

import (
	"context"
	"errors"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// Payload is the envelope every tool output embeds. Tool failures are
// reported inside the payload rather than as protocol errors, so the
// calling agent always receives a well-formed ok flag it can branch on.
type Payload struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ok is the success envelope.
func ok() Payload {
	return Payload{OK: true}
}

// failure converts an error into a payload carrying "CODE: reason" plus
// a recovery suggestion for codes the caller can act on.
func failure(err error) Payload {
	code := apperrors.CodeOf(err)

	reason := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		reason = appErr.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = ""
	}

	msg := string(code)
	if reason != "" {
		msg += ": " + reason
	}
	return Payload{Error: msg, Suggestion: suggestionFor(code)}
}

// suggestionFor maps an error code to a next step the agent can take.
func suggestionFor(code apperrors.Code) string {
	switch code {
	case apperrors.CodeIndexUnavailable:
		return "run project.init or index.rebuild, then retry"
	case apperrors.CodeUpstreamFailure:
		return "check provider credentials and base URL environment variables"
	case apperrors.CodeNotFound:
		return "list registered entries to find a valid name or id"
	default:
		return ""
	}
}
