package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRetryExhausted marks fetches that failed after every strategy
// (direct retries and, when configured, the full proxy pool) was tried.
// Match with errors.Is.
var ErrRetryExhausted = errors.New("fetch strategies exhausted")

// ErrInvalidJSON marks a 2xx response whose body is not valid JSON.
// Treated as transient: the upstream occasionally serves truncated
// bodies through intermediate proxies.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// ErrorClass classifies a failed attempt for retry policy and metrics.
type ErrorClass string

const (
	// ErrorClassNetwork covers connection failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer covers 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassForbidden covers HTTP 403, which the FPL API uses for
	// IP blocking. It triggers proxy escalation, never a same-route retry.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassClient covers the remaining 4xx responses. Not retried.
	ErrorClassClient ErrorClass = "client"
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Class      ErrorClass
	Endpoint   string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("FPL %s error (status %d) for %s: %s",
		e.Class, e.StatusCode, e.Endpoint, e.Message)
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusForbidden:
		return ErrorClassForbidden
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// classify derives the error class of a failed attempt.
func classify(err error) ErrorClass {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Class
	}
	return ErrorClassNetwork
}

// isTransient reports whether an attempt with this class may be retried
// on the same route.
func isTransient(class ErrorClass) bool {
	return class == ErrorClassNetwork || class == ErrorClassServer
}

// ExhaustedError is the terminal fetch failure: every strategy was
// tried without success. It records which strategies ran so an operator
// can tell "upstream totally blocked" from "one bad proxy".
type ExhaustedError struct {
	Endpoint       string
	DirectAttempts int
	ProxiesTried   int
	Err            error
}

func (e *ExhaustedError) Error() string {
	strategy := "direct only"
	if e.ProxiesTried > 0 {
		strategy = fmt.Sprintf("direct + %d proxies", e.ProxiesTried)
	}
	return fmt.Sprintf("fetch %s exhausted after %d direct attempts (%s): %v",
		e.Endpoint, e.DirectAttempts, strategy, e.Err)
}

// Unwrap exposes the last classified attempt error.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is matches ErrRetryExhausted so callers can test the terminal
// condition without depending on the concrete type.
func (e *ExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }
