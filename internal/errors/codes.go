// Package errors provides structured error handling for augment-lite-mcp.
//
// Every error that crosses a tool boundary carries one of the stable
// public codes below, so that callers can branch on failures without
// parsing message text.
package errors

// Code is a stable, public error code.
type Code string

const (
	// CodeInvalidInput indicates a malformed or out-of-range argument.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeUpstreamFailure indicates a model provider or embedding API failure.
	CodeUpstreamFailure Code = "UPSTREAM_FAILURE"
	// CodeIndexUnavailable indicates a missing or unloadable index.
	CodeIndexUnavailable Code = "INDEX_UNAVAILABLE"
	// CodeCancelled indicates the caller cancelled the operation.
	CodeCancelled Code = "CANCELLED"
	// CodeTimeout indicates the operation exceeded its deadline.
	CodeTimeout Code = "TIMEOUT"
	// CodeNotFound indicates the referenced entity does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInternal indicates an unexpected internal failure.
	CodeInternal Code = "INTERNAL"
)

// retryableCodes lists codes that represent transient failures.
var retryableCodes = map[Code]bool{
	CodeUpstreamFailure: true,
	CodeTimeout:         true,
}

// isRetryableCode reports whether a code represents a transient failure.
func isRetryableCode(code Code) bool {
	return retryableCodes[code]
}

// RetryableHTTPStatus reports whether an HTTP status from an upstream
// provider warrants a retry.
func RetryableHTTPStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
