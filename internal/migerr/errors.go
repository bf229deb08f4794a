// Package migerr implements the error taxonomy from spec.md §7: typed
// errors that carry a kind, a message, an actionable hint, and optional
// context/cause, following the structured-error shape of the teacher's
// m3api.BulkOperationError.
package migerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the seven taxonomy kinds from spec.md §7.
type Kind string

const (
	KindConfiguration Kind = "ConfigurationError"
	KindValidation    Kind = "ValidationError"
	KindConnection    Kind = "ConnectionError"
	KindAuth          Kind = "AuthError"
	KindRateLimit     Kind = "RateLimitError"
	KindData          Kind = "DataError"
	KindPermission    Kind = "PermissionError"
)

// Error is the common shape every surfaced migration error satisfies.
type Error struct {
	Kind          Kind
	Message       string
	Context       map[string]string
	Cause         error
	hint          string // explicit hint, if set by the constructor
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// ActionableHint returns the one-line "what to do" guidance required by
// spec §7. When no explicit hint was set, it infers one by keyword search
// over the message/cause, per spec §4.9.
func (e *Error) ActionableHint() string {
	if e.hint != "" {
		return e.hint
	}
	text := strings.ToLower(e.Message)
	if e.Cause != nil {
		text += " " + strings.ToLower(e.Cause.Error())
	}
	switch {
	case strings.Contains(text, "token") || strings.Contains(text, "credential") || strings.Contains(text, "auth"):
		return "Check your OAuth client credentials and re-run `auth:clear` if the problem persists."
	case strings.Contains(text, "rate limit") || strings.Contains(text, "429") || strings.Contains(text, "throttle"):
		return "The source or target API is rate-limiting this run; it will back off and retry automatically."
	case strings.Contains(text, "permission") || strings.Contains(text, "403") || strings.Contains(text, "forbidden"):
		return "Verify the account running this migration has owner-level access to the target workspace."
	case strings.Contains(text, "config") || strings.Contains(text, "environment variable"):
		return "Check the referenced environment variable in your configuration."
	default:
		return "Re-run with --verbose for more detail; this may be transient."
	}
}

// WithContext returns a copy of e with an additional context key/value.
func (e *Error) WithContext(key, value string) *Error {
	n := *e
	n.Context = make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		n.Context[k] = v
	}
	n.Context[key] = value
	return &n
}

func newErr(kind Kind, hint, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause, hint: hint}
}

// Configuration wraps a missing/invalid environment or configuration error.
// Fatal; never retried.
func Configuration(msg string, cause error) *Error {
	return newErr(KindConfiguration, "", msg, cause)
}

// Validation wraps a per-record structural shape violation. Collected and
// summarized by the Orchestrator rather than aborting the run, unless it
// breaks a structural invariant.
func Validation(msg string, cause error) *Error {
	return newErr(KindValidation, "", msg, cause)
}

// Connection wraps a network-level failure. Retryable via RetryEngine.
func Connection(msg string, cause error) *Error {
	return newErr(KindConnection, "", msg, cause)
}

// Auth wraps a credential/device-code failure.
type AuthKind string

const (
	AuthDeclined       AuthKind = "Declined"
	AuthExpired        AuthKind = "Expired"
	AuthPendingTimeout AuthKind = "PendingTimeout"
	AuthInvalidCode    AuthKind = "InvalidCode"
	AuthRefreshFailed  AuthKind = "Refresh"
)

// AuthError is the §4.1 AuthError{kind} shape. The underlying *Error is a
// named, not anonymous, field: embedding it anonymously would promote both
// a field and a method named "Error" at the same depth, and the field would
// win, silently breaking the error interface.
type AuthError struct {
	Base     *Error
	AuthKind AuthKind
}

func (e *AuthError) Error() string          { return e.Base.Error() }
func (e *AuthError) Unwrap() error          { return e.Base }
func (e *AuthError) ActionableHint() string { return e.Base.ActionableHint() }

func Auth(kind AuthKind, msg string, cause error) *AuthError {
	return &AuthError{Base: newErr(KindAuth, "", msg, cause), AuthKind: kind}
}

// RateLimit wraps a 429/Retry-After response; consumed by RetryEngine.
type RateLimitError struct {
	Base         *Error
	RetryAfterMs int64
}

func (e *RateLimitError) Error() string          { return e.Base.Error() }
func (e *RateLimitError) Unwrap() error          { return e.Base }
func (e *RateLimitError) ActionableHint() string { return e.Base.ActionableHint() }

func RateLimit(retryAfterMs int64, msg string, cause error) *RateLimitError {
	return &RateLimitError{Base: newErr(KindRateLimit, "", msg, cause), RetryAfterMs: retryAfterMs}
}

// Data wraps a semantically invalid but successfully retrieved record
// (unresolved parent, dangling predecessor, etc).
func Data(msg string, cause error) *Error {
	return newErr(KindData, "", msg, cause)
}

// Permission wraps a target-side 403 on a structural operation. Fatal.
func Permission(msg string, cause error) *Error {
	return newErr(KindPermission, "", msg, cause)
}

// As is a thin re-export of errors.As for callers that don't want to import
// both packages.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, otherwise reports false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Summary formats a one-line "What to do" message suitable for end-user
// surfacing, per spec §7.
func Summary(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return fmt.Sprintf("%s — %s", e.Error(), e.ActionableHint())
	}
	return err.Error()
}
