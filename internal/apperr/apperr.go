// Package apperr defines the error taxonomy shared by the pipeline stages
// and the HTTP surface. Every error a stage returns to a caller is wrapped
// in an *Error carrying a kind (for status mapping) and a stable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping and retry decisions.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindUpstream
	KindPersistence
)

// UpstreamKind refines KindUpstream errors from the reasoning engine.
type UpstreamKind string

const (
	UpstreamAuth      UpstreamKind = "auth"
	UpstreamQuota     UpstreamKind = "quota"
	UpstreamNetwork   UpstreamKind = "network"
	UpstreamTimeout   UpstreamKind = "timeout"
	UpstreamMalformed UpstreamKind = "malformed_response"
)

// Stable error codes surfaced in API responses.
const (
	CodeQuestionsExist       = "QUESTIONS_ALREADY_EXIST"
	CodeNoAnswersFound       = "NO_ANSWERS_FOUND"
	CodeProjectRequired      = "PROJECT_REQUIRED"
	CodeAnalysisNotCompleted = "ANALYSIS_NOT_COMPLETED"
	CodeAlreadyProcessing    = "ALREADY_PROCESSING"
	CodeQueueFull            = "QUEUE_FULL"
)

// Error is the taxonomy error type. Code is optional; Upstream is set only
// for KindUpstream.
type Error struct {
	Kind     Kind
	Upstream UpstreamKind
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a 400-class error with a stable code.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Auth builds a 401-class error.
func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

// NotFound builds a 404-class error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict builds a 409-class error with a stable code.
func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Upstream wraps a reasoning-engine failure with its sub-kind.
func Upstream(kind UpstreamKind, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Upstream: kind, Message: msg, Err: err}
}

// Persistence wraps a primary-write storage failure.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// As extracts an *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// CodeOf returns the stable code carried by err, or "".
func CodeOf(err error) string {
	if ae := As(err); ae != nil {
		return ae.Code
	}
	return ""
}

// IsRetryable reports whether err is an upstream failure that is safe to
// retry (network, timeout, quota). Auth and malformed-response upstream
// errors are not retryable.
func IsRetryable(err error) bool {
	ae := As(err)
	if ae == nil || ae.Kind != KindUpstream {
		return false
	}
	switch ae.Upstream {
	case UpstreamNetwork, UpstreamTimeout, UpstreamQuota:
		return true
	}
	return false
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	ae := As(err)
	if ae == nil {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		switch ae.Upstream {
		case UpstreamTimeout:
			return http.StatusGatewayTimeout
		case UpstreamQuota:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}
