package eventtree

import (
	"errors"
	"fmt"
)

// Sentinel errors. Errors reported by a Registry are *Error values whose
// Unwrap returns one of these, so use errors.Is to classify them.
var (
	// ErrInvalidEventName indicates the name was rejected by the event-name
	// policy: it is empty, or arbitrary events are disabled and the name is
	// not on the event list.
	ErrInvalidEventName = errors.New("invalid event name")

	// ErrUnregisteredEvent indicates strict mode is enabled and the event was
	// never registered on the manager.
	ErrUnregisteredEvent = errors.New("event is not registered")

	// ErrMissingParent indicates the declared parent has not been set up yet.
	// The link is resolved when the parent is set up.
	ErrMissingParent = errors.New("parent has not been set up")

	// ErrConfigurationAfterSetup indicates an attempt to change the registry
	// configuration after a manager was set up.
	ErrConfigurationAfterSetup = errors.New("configuration cannot change after setup")

	// ErrLinkCycle indicates a parent link was rejected because it would make
	// a manager its own ancestor.
	ErrLinkCycle = errors.New("parent link would create a cycle")

	// ErrInvalidOwner indicates a nil or non-comparable owner was passed to Setup.
	ErrInvalidOwner = errors.New("owner must be a non-nil comparable value")

	// ErrDuplicateOwner indicates the owner already has a live manager.
	ErrDuplicateOwner = errors.New("owner is already set up")

	// ErrManagerDestroyed indicates an operation on a destroyed manager.
	ErrManagerDestroyed = errors.New("manager is destroyed")

	// ErrInvokeDisabled indicates Invoke or RegisterList was called while
	// arbitrary invocation is disabled.
	ErrInvokeDisabled = errors.New("arbitrary invoke is disabled")

	// ErrRootManager indicates an operation that is not allowed on the root manager.
	ErrRootManager = errors.New("operation not allowed on the root manager")

	// ErrListenerPanic indicates a listener panicked and the panic was recovered.
	ErrListenerPanic = errors.New("listener panicked")

	// ErrNilHandler indicates a nil handler was passed to Attach.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// Severity classifies how a reported error is delivered.
type Severity int

const (
	// SeverityWarning errors never block the operation. Without a warning
	// handler they are dropped.
	SeverityWarning Severity = iota
	// SeverityError errors are returned to the caller unless an error
	// handler is configured.
	SeverityError
)

// String returns a string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Error is the error type reported by a Registry.
type Error struct {
	// Kind is the sentinel error this error wraps.
	Kind error
	// Severity decides which handler receives the error.
	Severity Severity
	// Manager is the manager the operation ran on.
	Manager ID
	// Event is the event name involved, if any.
	Event string
	// Detail is an optional human readable explanation.
	Detail string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Event != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Event)
	}
	msg = fmt.Sprintf("%s (manager %d)", msg, e.Manager)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// IsWarning reports whether err is a warning-severity *Error.
func IsWarning(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Severity == SeverityWarning
}
