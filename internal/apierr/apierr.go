// Package apierr defines the error taxonomy shared by every RPC handler and
// CLI subcommand in the TORI consolidation pipeline.
package apierr

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/status"
)

// Code is one of the error classes of the RPC surface.
type Code int

const (
	// CodeInternal is the zero value so an unwrapped error defaults safely.
	CodeInternal Code = iota
	CodeInvalidArgument
	CodeNotFound
	CodeAlreadyExists
	CodeUnavailable
	CodeFailedPrecondition
	CodePolicyRefusal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeNotFound:
		return "NotFound"
	case CodeAlreadyExists:
		return "AlreadyExists"
	case CodeUnavailable:
		return "Unavailable"
	case CodeFailedPrecondition:
		return "FailedPrecondition"
	case CodePolicyRefusal:
		return "PolicyRefusal"
	default:
		return "Internal"
	}
}

// retryable reports whether the calling RPC layer should retry this class
// transparently (Unavailable only — everything else is a final answer).
func (c Code) retryable() bool {
	return c == CodeUnavailable
}

// Error is the concrete error type carried across RPC boundaries.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error class.
func (e *Error) Code() Code { return e.code }

// Retryable reports whether callers should retry.
func (e *Error) Retryable() bool { return e.code.retryable() }

func newErr(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an InvalidArgument error.
func InvalidArgument(format string, args ...any) error { return newErr(CodeInvalidArgument, format, args...) }

// NotFound builds a NotFound error.
func NotFound(format string, args ...any) error { return newErr(CodeNotFound, format, args...) }

// AlreadyExists builds an AlreadyExists error (non-fatal, idempotent duplicate).
func AlreadyExists(format string, args ...any) error { return newErr(CodeAlreadyExists, format, args...) }

// Unavailable builds a retryable Unavailable error.
func Unavailable(format string, args ...any) error { return newErr(CodeUnavailable, format, args...) }

// FailedPrecondition builds a FailedPrecondition error.
func FailedPrecondition(format string, args ...any) error {
	return newErr(CodeFailedPrecondition, format, args...)
}

// PolicyRefusal builds a PolicyRefusal error.
func PolicyRefusal(format string, args ...any) error { return newErr(CodePolicyRefusal, format, args...) }

// Internal wraps an unexpected error as CodeInternal. It only builds the
// error value; setting a service's Degraded flag is left to the caller.
func Internal(cause error, format string, args ...any) error {
	e := newErr(CodeInternal, format, args...)
	e.cause = cause
	return e
}

var codesByName = map[string]Code{
	CodeInvalidArgument.String():    CodeInvalidArgument,
	CodeNotFound.String():           CodeNotFound,
	CodeAlreadyExists.String():      CodeAlreadyExists,
	CodeUnavailable.String():        CodeUnavailable,
	CodeFailedPrecondition.String(): CodeFailedPrecondition,
	CodePolicyRefusal.String():      CodePolicyRefusal,
	CodeInternal.String():           CodeInternal,
}

// GetCode extracts the Code from any error, defaulting to Internal for
// errors that didn't originate from this package. A gRPC client sees its
// peer's apierr.Error only as a status error carrying Error()'s rendered
// "<Code>: message" text (the jsonCodec has no channel for Code itself), so
// GetCode also recovers the code from that prefix when present.
func GetCode(err error) Code {
	if err == nil {
		return CodeInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	if st, ok := status.FromError(err); ok {
		if prefix, _, found := strings.Cut(st.Message(), ": "); found {
			if code, known := codesByName[prefix]; known {
				return code
			}
		}
	}
	return CodeInternal
}

// Retryable reports whether err should be retried by the caller.
func Retryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// Response is the {status, message, retryable} envelope every RPC returns.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ToResponse maps any error (or nil) into the wire-level envelope.
func ToResponse(err error) Response {
	if err == nil {
		return Response{Status: "OK"}
	}
	var e *Error
	if errors.As(err, &e) {
		return Response{Status: e.Code().String(), Message: e.Error(), Retryable: e.Retryable()}
	}
	return Response{Status: CodeInternal.String(), Message: err.Error()}
}

// ExitCode maps an error to the CLI exit codes of spec.md §6/§7:
// 0 success, 1 generic failure, 2 input error, 3 service unavailable,
// 4 policy refusal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeInvalidArgument:
		return 2
	case CodeUnavailable:
		return 3
	case CodePolicyRefusal:
		return 4
	default:
		return 1
	}
}
