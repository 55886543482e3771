package docindex

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// The first group is generic; the second group is the pipeline taxonomy.
// Per-item codes (EFETCH, EROBOTS, EPARSE) are logged and skipped by the
// orchestrators, the rest abort the run before anything is persisted.
const (
	ECONFLICT = "conflict"
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ELOCKED   = "locked"
	ENOTFOUND = "not_found"

	EFETCH        = "fetch"
	EROBOTS       = "robots_denied"
	EPARSE        = "parse"
	EDIMENSION    = "dimension_mismatch"
	EUNREADABLE   = "index_unreadable"
	EINCONSISTENT = "manifest_inconsistency"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
//
// Any non-application error (such as a disk error) should be reported as an
// EINTERNAL error and the human user should only see "Internal error" as the
// message.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("docindex error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL, except HTTPError which
// reports EFETCH.
func ErrorCode(err error) string {
	var e *Error
	var h *HTTPError
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	} else if errors.As(err, &h) {
		return EFETCH
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	var h *HTTPError
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	} else if errors.As(err, &h) {
		return h.Error()
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
