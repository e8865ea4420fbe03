package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRetryableProvider marks failures worth another attempt or another credential.
	ErrRetryableProvider = errors.New("retryable provider failure")
	// ErrTerminalProvider marks failures that no retry can fix.
	ErrTerminalProvider = errors.New("terminal provider failure")
)

var retryableSignatures = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"permission denied",
	"permission_denied",
	"forbidden",
	"overloaded",
	"timeout",
	"timed out",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
}

// ProviderError is the normalized failure returned by provider adapters. A
// StatusCode of zero means the failure happened before an HTTP response.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
	}
	if e.Operation != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Operation)
	}
	if b.Len() == 0 {
		b.WriteString("provider")
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure matches a transient signature.
func (e *ProviderError) Retryable() bool {
	if retryableStatus(e.StatusCode) {
		return true
	}
	if e.StatusCode > 0 {
		return false
	}
	if e.Err != nil && IsRetryable(e.Err) {
		return true
	}
	return matchesSignature(e.Message)
}

// Classify maps err onto ErrRetryableProvider or ErrTerminalProvider. Errors
// implementing Retryable() bool classify themselves; everything else is judged
// by HTTP status codes and message signatures.
func Classify(err error) error {
	if IsRetryable(err) {
		return ErrRetryableProvider
	}
	return ErrTerminalProvider
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTerminalProvider) {
		return false
	}
	if errors.Is(err, ErrRetryableProvider) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var self interface{ Retryable() bool }
	if errors.As(err, &self) {
		return self.Retryable()
	}
	return matchesSignature(err.Error())
}

func retryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code == http.StatusForbidden:
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

func matchesSignature(message string) bool {
	lower := strings.ToLower(message)
	if lower == "" {
		return false
	}
	for _, code := range []string{"408", "429", "403", "500", "502", "503", "504"} {
		if containsCode(lower, code) {
			return true
		}
	}
	for _, sig := range retryableSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// containsCode matches a status code standing alone, so "4290 tokens" does not count.
func containsCode(s, code string) bool {
	for idx := 0; ; {
		pos := strings.Index(s[idx:], code)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(code)
		before := start == 0 || !isDigit(s[start-1])
		after := end == len(s) || !isDigit(s[end])
		if before && after {
			return true
		}
		idx = end
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
