package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connect: connection refused"), true},
		{"wrapped reset", &FetchError{Method: "GET", URL: "u", Err: errors.New("read: connection reset by peer")}, true},
		{"net timeout", fmt.Errorf("hop: %w", timeoutErr{}), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"fatal", NewFatalError(errors.New("connection refused")), false},
		{"proxy auth", errors.New("407 Proxy Authentication Required"), false},
		{"too many redirects", fmt.Errorf("GET u: %w", ErrTooManyRedirects), false},
		{"canceled", &FetchError{Method: "GET", URL: "u", Err: context.Canceled}, false},
		{"caller deadline", &FetchError{Method: "GET", URL: "u", Err: context.DeadlineExceeded}, false},
		{"other", errors.New("bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestFatalError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("worker 1: %w", NewFatalError(base))

	assert.True(t, IsFatalError(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsFatalError(base))
	assert.False(t, IsFatalError(nil))
}

func TestContainsFatalErrorString(t *testing.T) {
	assert.True(t, ContainsFatalErrorString(errors.New(`Unknown Browser Profile "x"`)))
	assert.False(t, ContainsFatalErrorString(errors.New("timeout")))
	assert.False(t, ContainsFatalErrorString(nil))
}

func TestFetchErrorFormat(t *testing.T) {
	err := &FetchError{Method: "GET", URL: "https://example.test/", Err: errors.New("refused")}
	assert.Equal(t, "GET https://example.test/: refused", err.Error())
	assert.Equal(t, "refused", errors.Unwrap(err).Error())
}
