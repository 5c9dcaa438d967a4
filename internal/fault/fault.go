// Package fault defines the typed failure taxonomy for the frame-finder
// pipeline. Every stage returns a *Error; the pipeline controller is the
// single place that converts a fault into an HTTP response, so handlers and
// stages never branch on error strings.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure class. Kind values are stable identifiers that
// appear in error responses and logs.
type Kind string

const (
	// KindMalformedEvent marks a notification that carries no usable
	// bucket/key pair in any recognized shape. Retrying cannot help.
	KindMalformedEvent Kind = "MALFORMED_EVENT"

	// KindSourceNotFound marks a source object that does not exist.
	KindSourceNotFound Kind = "SOURCE_NOT_FOUND"

	// KindStorageUnavailable marks a transient source-store failure.
	// The delivery mechanism's redelivery is the recovery path.
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"

	// KindAnalysisRejected marks an analysis call that failed outright,
	// either non-transiently (auth, bad request) or after retries.
	KindAnalysisRejected Kind = "ANALYSIS_REJECTED"

	// KindAnalysisTimeout marks an analysis readiness poll that exhausted
	// its wait budget.
	KindAnalysisTimeout Kind = "ANALYSIS_TIMEOUT"

	// KindAnalysisMalformed marks a model response that did not parse as
	// the required judgment schema.
	KindAnalysisMalformed Kind = "ANALYSIS_MALFORMED"

	// KindTimestampOutOfRange marks a judged second beyond the video's
	// duration.
	KindTimestampOutOfRange Kind = "TIMESTAMP_OUT_OF_RANGE"

	// KindFrameDecodeFailed marks a frame extraction or decode failure at
	// the computed frame index.
	KindFrameDecodeFailed Kind = "FRAME_DECODE_FAILED"

	// KindPublishFailed marks a failed write to the output store.
	KindPublishFailed Kind = "PUBLISH_FAILED"
)

// Error is a pipeline failure with a classified kind. Message is safe to
// return to callers; Err carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure kind to the response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMalformedEvent:
		return http.StatusBadRequest
	case KindSourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates a fault with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a fault with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault around an underlying cause. The cause is preserved
// for errors.Is/As and logging; it is never part of the client message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Of extracts the *Error from an error chain, or nil if none is present.
func Of(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// IsKind reports whether err carries a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	fe := Of(err)
	return fe != nil && fe.Kind == kind
}
