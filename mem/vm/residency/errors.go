package residency

import (
	"errors"
	"fmt"
)

// Errors returned by the residency tables.
var (
	ErrFramesExhausted = errors.New("no free accelerator frame")
	ErrRegistryFull    = errors.New("pending registry is full")
	ErrDuplicateKey    = errors.New("key is already registered")
	ErrUnknownHVP      = errors.New("host page is not resident")
	ErrUnknownKey      = errors.New("key is not registered")
	ErrFrameAliased    = errors.New("frame is held by another host page")
	ErrDoubleFree      = errors.New("frame is already free")
	ErrForeignFrame    = errors.New("frame does not belong to the pool")

	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrPermission marks a guest access that cannot be translated.
	ErrPermission = errors.New("access is not permitted")
)

// A Class groups errors by how the system reacts to them.
type Class int

// The error classes.
const (
	ClassNone Class = iota
	PermissionFault
	CapacityExhausted
	ProtocolViolation
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case PermissionFault:
		return "permission fault"
	case CapacityExhausted:
		return "capacity exhausted"
	case ProtocolViolation:
		return "protocol violation"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Fatal reports whether errors of the class terminate the process.
func (c Class) Fatal() bool {
	return c == CapacityExhausted || c == ProtocolViolation
}

// Classify maps an error to its class. Unknown errors are protocol
// violations.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrPermission):
		return PermissionFault
	case errors.Is(err, ErrFramesExhausted),
		errors.Is(err, ErrRegistryFull):
		return CapacityExhausted
	default:
		return ProtocolViolation
	}
}

// A FatalError is the panic value used when the host and the accelerator can
// no longer agree on the residency state.
type FatalError struct {
	Class Class
	Err   error
}

// NewFatalError classifies err and wraps it.
func NewFatalError(err error) *FatalError {
	return &FatalError{Class: Classify(err), Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
