// Package apperr is the typed error hierarchy of spec.md §7. Every error
// that crosses a component boundary into the HTTP layer or a poller's
// error-counting path should be one of these kinds so the caller can
// decide on a status code or a retry policy without string-matching.
package apperr

import "fmt"

type Kind string

const (
	KindConfig       Kind = "config"
	KindValidation   Kind = "validation"
	KindUpstream     Kind = "upstream"
	KindStateConflict Kind = "state_conflict"
	KindExecution    Kind = "execution_failure"
	KindUnknown      Kind = "unknown"
)

// Error wraps an underlying cause with a Kind, so callers can recover the
// kind with errors.As without losing the original error for logging.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Config(msg string, err error) *Error     { return newErr(KindConfig, msg, err) }
func Validation(msg string, err error) *Error { return newErr(KindValidation, msg, err) }
func Upstream(msg string, err error) *Error   { return newErr(KindUpstream, msg, err) }
func StateConflict(msg string, err error) *Error {
	return newErr(KindStateConflict, msg, err)
}
func Execution(msg string, err error) *Error { return newErr(KindExecution, msg, err) }
func Unknown(msg string, err error) *Error   { return newErr(KindUnknown, msg, err) }

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == k
}
