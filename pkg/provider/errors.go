package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a provider failure into the shared error taxonomy.
type Kind string

const (
	KindRateLimited     Kind = "rate_limited"
	KindQuotaExceeded   Kind = "quota_exceeded"
	KindNotFound        Kind = "not_found"
	KindInvalidResponse Kind = "invalid_response"
	KindNetworkError    Kind = "network_error"
	KindTimeout         Kind = "timeout"
)

// Fold collapses the taxonomy into the buckets the fallback loop cares about:
// InvalidResponse behaves like NotFound, Timeout behaves like NetworkError.
func (k Kind) Fold() Kind {
	switch k {
	case KindInvalidResponse:
		return KindNotFound
	case KindTimeout:
		return KindNetworkError
	default:
		return k
	}
}

// Error is a typed provider failure. The orchestrator inspects the Kind to
// decide how to record the failure; it never aborts the chain on one.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a taxonomy error for the named provider.
func NewError(providerName string, kind Kind, err error) *Error {
	return &Error{Provider: providerName, Kind: kind, Err: err}
}

// Errorf builds a taxonomy error with a formatted message.
func Errorf(providerName string, kind Kind, format string, args ...any) *Error {
	return &Error{Provider: providerName, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// Classify maps a transport-level error into the taxonomy. Context deadline
// and net timeouts become Timeout; everything else becomes NetworkError.
func Classify(providerName string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(providerName, KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(providerName, KindTimeout, err)
	}
	return NewError(providerName, KindNetworkError, err)
}

// ClassifyStatus maps an unexpected HTTP status into the taxonomy.
func ClassifyStatus(providerName string, status int) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return Errorf(providerName, KindRateLimited, "http status %d", status)
	case status == http.StatusNotFound:
		return Errorf(providerName, KindNotFound, "http status %d", status)
	case status >= 500:
		return Errorf(providerName, KindNetworkError, "http status %d", status)
	default:
		return Errorf(providerName, KindInvalidResponse, "http status %d", status)
	}
}
