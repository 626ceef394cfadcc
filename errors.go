package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds the configured hop limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// FetchError wraps a transport failure with the request that caused it.
type FetchError struct {
	Method string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Fatal Errors
// =============================================================================

// FatalError represents an error that should stop a batch immediately.
// These are configuration problems where retrying with another URL won't help.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{Err: err}
}

// IsFatalError checks if the error is a fatal error that should stop the batch.
func IsFatalError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FatalError
	return errors.As(err, &fe)
}

// fatalErrorStrings contains substrings that indicate a fatal error.
var fatalErrorStrings = []string{
	"proxy authentication required",
	"unknown browser profile",
}

// ContainsFatalErrorString checks if an error message contains a fatal error indicator.
func ContainsFatalErrorString(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, s := range fatalErrorStrings {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// Retryable Errors
// =============================================================================

// retryableErrorPatterns contains error message substrings that indicate retryable errors.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError checks if the error is temporary and worth retrying through another proxy.
// Cancellation or deadline expiry of the caller's context is never retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if IsFatalError(err) || ContainsFatalErrorString(err) {
		return false
	}

	if errors.Is(err, ErrTooManyRedirects) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
