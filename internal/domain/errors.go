package domain

import "errors"

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindAnalysisUnavailable ErrorKind = "analysis_unavailable"
	KindStorageUnavailable  ErrorKind = "storage_unavailable"
	KindInternal            ErrorKind = "internal"
)

// Error carries a failure kind and a message that is safe to show callers.
// Err holds the underlying cause for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func AnalysisUnavailable(message string, cause error) error {
	return &Error{Kind: KindAnalysisUnavailable, Message: message, Err: cause}
}

func StorageUnavailable(message string, cause error) error {
	return &Error{Kind: KindStorageUnavailable, Message: message, Err: cause}
}

// KindOf reports KindInternal for nil-kind or foreign errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) && de.Kind != "" {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage never exposes the cause of an internal error.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal && de.Kind != "" {
		return de.Message
	}
	return "Internal server error"
}
