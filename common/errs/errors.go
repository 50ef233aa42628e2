// Package errs defines the tagged error-kind vocabulary shared across the
// gateway core. Kinds are plain data, not exception classes, so
// callers can switch on them without type assertions into package-private
// error structs.
package errs

import (
	"net/http"

	"github.com/Laisky/errors/v2"
)

// Kind tags a Routex error with the taxonomy the gateway reports to clients
// and to metrics.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindServiceUnavailable Kind = "service_unavailable"
	KindTransformer        Kind = "transformer_error"
	KindUpstream           Kind = "upstream_error"
	KindTimeout            Kind = "timeout_error"
	KindCircuitOpen        Kind = "circuit_open"
)

// StatusCode maps a Kind to its default HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindTransformer:
		return http.StatusInternalServerError
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the concrete error value carried through the gateway. It wraps an
// optional cause with Laisky/errors so stack context survives logging.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause, preserving it via
// errors.Wrap for stack-trace propagation.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.Wrap(cause, message)}
}

// WithDetails attaches structured detail fields (returned to clients under
// error.details) and returns the same *Error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func Validation(msg string) *Error         { return New(KindValidation, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func ServiceUnavailable(msg string) *Error { return New(KindServiceUnavailable, msg) }
func Timeout(msg string) *Error            { return New(KindTimeout, msg) }

func Transformer(cause error, msg string) *Error { return Wrap(KindTransformer, cause, msg) }
func Upstream(cause error, msg string) *Error     { return Wrap(KindUpstream, cause, msg) }

// CircuitOpen reports that a request proceeded via fallback after its
// preferred channel's breaker was open; it is informational, not fatal, and
// callers typically log/record it rather than abort the request.
func CircuitOpen(channelName string) *Error {
	return New(KindCircuitOpen, "circuit open for channel "+channelName)
}

// AsError extracts a *Error from any error chain, returning ok=false when the
// chain carries none (in which case callers should treat it as an
// unclassified internal error).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Envelope is the client-visible JSON failure shape.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToEnvelope renders any error into the client-visible JSON failure shape,
// falling back to an opaque internal-error kind for unclassified errors.
func ToEnvelope(err error) (int, Envelope) {
	e, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError, Envelope{Error: EnvelopeBody{
			Kind:    "internal_error",
			Message: err.Error(),
		}}
	}
	return e.Kind.StatusCode(), Envelope{Error: EnvelopeBody{
		Kind:    e.Kind,
		Message: e.Message,
		Details: e.Details,
	}}
}
