package service

import "errors"

// Kind is the category of a lifecycle failure. Transports map kinds to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindInvalidOrExpired
	// KindDelivery is an internal failure of the notification gateway, reported apart
	// from lookup failures so callers can tell "not found" from "mail did not go out".
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidOrExpired:
		return "invalid_or_expired"
	case KindDelivery:
		return "delivery"
	default:
		return "internal"
	}
}

// LifecycleError is returned by every Service operation. Message is safe to show to the
// caller; Err is the underlying cause and is only for logs.
type LifecycleError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *LifecycleError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// Is matches another LifecycleError of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *LifecycleError) Is(target error) bool {
	var t *LifecycleError
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation       = &LifecycleError{Kind: KindValidation}
	ErrConflict         = &LifecycleError{Kind: KindConflict}
	ErrNotFound         = &LifecycleError{Kind: KindNotFound}
	ErrUnauthorized     = &LifecycleError{Kind: KindUnauthorized}
	ErrInvalidOrExpired = &LifecycleError{Kind: KindInvalidOrExpired}
	ErrDelivery         = &LifecycleError{Kind: KindDelivery}
	ErrInternal         = &LifecycleError{Kind: KindInternal}
)

// KindOf returns the kind of err. Errors that are not LifecycleErrors are internal.
func KindOf(err error) Kind {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing message for err.
func PublicMessage(err error) string {
	var le *LifecycleError
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	return "Internal server error"
}

func validationError(msg string) error {
	return &LifecycleError{Kind: KindValidation, Message: msg}
}

func conflictError(msg string) error {
	return &LifecycleError{Kind: KindConflict, Message: msg}
}

func notFoundError(msg string) error {
	return &LifecycleError{Kind: KindNotFound, Message: msg}
}

func unauthorizedError(msg string) error {
	return &LifecycleError{Kind: KindUnauthorized, Message: msg}
}

func invalidOrExpiredError(msg string) error {
	return &LifecycleError{Kind: KindInvalidOrExpired, Message: msg}
}

func deliveryError(msg string, cause error) error {
	return &LifecycleError{Kind: KindDelivery, Message: msg, Err: cause}
}

func internalError(msg string, cause error) error {
	return &LifecycleError{Kind: KindInternal, Message: msg, Err: cause}
}

// asLifecycle passes LifecycleErrors through and wraps anything else as internal with msg.
func asLifecycle(err error, msg string) error {
	var le *LifecycleError
	if errors.As(err, &le) {
		return err
	}
	return internalError(msg, err)
}
