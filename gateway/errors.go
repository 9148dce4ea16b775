package gateway

import (
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

// ErrorKind is the closed set of failures a client can observe.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBackendUnavailable
	KindImageFetch
	KindBadRequest
)

// Machine-readable error codes.
const (
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeImageFetchFailed   = "IMAGE_FETCH_FAILED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Status returns the HTTP status for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case KindImageFetch, KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code for the kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindBackendUnavailable:
		return CodeServiceUnavailable
	case KindImageFetch:
		return CodeImageFetchFailed
	case KindBadRequest:
		return CodeBadRequest
	default:
		return CodeInternalError
	}
}

func (k ErrorKind) String() string {
	return k.Code()
}

// Classify maps a pipeline error to its kind. The checks run in precedence
// order: backend unavailable, image fetch, bad input, then everything else.
func Classify(err error) ErrorKind {
	switch {
	case backendUnavailable(err):
		return KindBackendUnavailable
	case errors.As(err, new(*imagesrc.FetchError)):
		return KindImageFetch
	case errors.As(err, new(*imagesrc.FormatError)),
		errors.As(err, new(*ValidationError)):
		return KindBadRequest
	default:
		return KindInternal
	}
}

// backendUnavailable reports whether err is a backend call that failed before
// a connection was established.
func backendUnavailable(err error) bool {
	var backendErr *ollama.BackendError
	if !errors.As(err, &backendErr) || backendErr.Err == nil {
		return false
	}

	if errors.Is(backendErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(backendErr.Err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(backendErr.Err, &dnsErr)
}

// ValidationError reports a request that does not match the expected shape.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Field + ": " + e.Reason + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the client-facing message and its machine-readable code.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Envelope classifies err and builds its client-facing body.
func Envelope(err error) ErrorEnvelope {
	return envelopeFor(Classify(err), err)
}

// envelopeFor builds the client-facing body for err. Internal errors never
// expose their cause.
func envelopeFor(kind ErrorKind, err error) ErrorEnvelope {
	var msg string
	switch kind {
	case KindBackendUnavailable:
		msg = "model backend is unavailable: " + err.Error()
	case KindImageFetch, KindBadRequest:
		msg = err.Error()
	default:
		msg = "internal server error"
	}
	return ErrorEnvelope{Error: ErrorBody{Message: msg, Code: kind.Code()}}
}
