package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it.
type Kind int

const (
	Unknown Kind = iota
	Validation
	NotFound
	InvalidTransition
	ExternalService
	RateLimited
	Unauthorized
	Forbidden
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "VALIDATION"
	case NotFound:
		return "NOT_FOUND"
	case InvalidTransition:
		return "INVALID_TRANSITION"
	case ExternalService:
		return "EXTERNAL_SERVICE"
	case RateLimited:
		return "RATE_LIMITED"
	case Unauthorized:
		return "UNAUTHORIZED"
	case Forbidden:
		return "FORBIDDEN"
	case Conflict:
		return "CONFLICT"
	default:
		return "UNKNOWN"
	}
}

// Codes carried by provider-specific errors.
const (
	CodeQuotaExceeded = "quota_exceeded"
	CodeSafetyBlocked = "safety_blocked"
	CodeOutOfStock    = "out_of_stock"
	CodeCartEmpty     = "cart_empty"
)

// Codes carried by storage conflicts.
const (
	CodeStaleOrder      = "stale_order"
	CodeDuplicateNumber = "duplicate_order_number"
)

// Error is the application error type. Message is always safe to show to a user.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
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

// Is matches another *Error by kind and, when set on the target, by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause while keeping a user-safe message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithCode returns a copy of e carrying code.
func (e *Error) WithCode(code string) *Error {
	c := *e
	c.Code = code
	return &c
}

func ValidationError(message string) *Error {
	return New(Validation, message)
}

func NotFoundError(entity, id string) *Error {
	return &Error{Kind: NotFound, Code: entity, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

func InvalidTransitionError(format string, args ...interface{}) *Error {
	return Newf(InvalidTransition, format, args...)
}

func ExternalServiceError(message string, err error) *Error {
	return Wrap(ExternalService, message, err)
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// CodeOf reports the Code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
