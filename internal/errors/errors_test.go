package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeInvalidInput, "k must be positive", nil)
	assert.Equal(t, "[INVALID_INPUT] k must be positive", err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Upstream("embedding API unreachable", cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsByCode(t *testing.T) {
	a := NotFound("project p1")
	b := NotFound("project p2")
	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, InvalidInput("x")))
}

func TestWithDetail(t *testing.T) {
	err := InvalidInput("bad name").WithDetail("field", "name").WithDetail("max", "64")
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, "64", err.Details["max"])
}

func TestWrapNil(t *testing.T) {
	var got *Error = Wrap(CodeInternal, nil)
	assert.Nil(t, got)
}

func TestWrapContextErrors(t *testing.T) {
	err := Wrap(CodeUpstreamFailure, context.Canceled)
	assert.Equal(t, CodeCancelled, err.Code)

	err = Wrap(CodeUpstreamFailure, context.DeadlineExceeded)
	assert.Equal(t, CodeTimeout, err.Code)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Upstream("503 from provider", nil)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(InvalidInput("bad")))
	assert.False(t, IsRetryable(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("x")))
	assert.Equal(t, CodeCancelled, CodeOf(context.Canceled))
	assert.Equal(t, CodeTimeout, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))

	wrapped := fmt.Errorf("outer: %w", IndexUnavailable("missing", nil))
	assert.Equal(t, CodeIndexUnavailable, CodeOf(wrapped))
}

func TestRetryableHTTPStatus(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 504} {
		assert.True(t, RetryableHTTPStatus(status), "status %d", status)
	}
	for _, status := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, RetryableHTTPStatus(status), "status %d", status)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = 0
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return Upstream("503", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = 0
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return InvalidInput("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = 0
	calls := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, Upstream("always down", nil)
	})
	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
	assert.Contains(t, err.Error(), "giving up")
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return Upstream("down", nil)
	})
	require.Error(t, err)
	assert.Equal(t, CodeCancelled, CodeOf(err))
}
