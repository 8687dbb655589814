package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrValue          = errors.New("invalid value")
	ErrNotImplemented = errors.New("not implemented")
	ErrIllegalState   = errors.New("illegal state")
	ErrConversion     = errors.New("conversion failed")
)

// ValueError is returned at graph-build time for malformed arguments,
// such as negative indices or too many index axes.
type ValueError struct {
	Op  string
	Msg string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// Is matches ErrValue.
func (e *ValueError) Is(target error) bool { return target == ErrValue }

// NotImplementedError is returned for requests the engine lowering
// explicitly does not support.
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Feature)
}

// Is matches ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool { return target == ErrNotImplemented }

// IllegalStateError is returned when a node lacks the structure needed to
// generate or materialize it.
type IllegalStateError struct {
	Msg string
}

func (e *IllegalStateError) Error() string {
	return "illegal state: " + e.Msg
}

// Is matches ErrIllegalState.
func (e *IllegalStateError) Is(target error) bool { return target == ErrIllegalState }

// ConversionError is returned when an engine result cannot be converted to
// the host representation requested by a node.
type ConversionError struct {
	Name string
	Want DataType
	Got  DataType
	Msg  string
}

func (e *ConversionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("cannot convert result %s: %s", e.Name, e.Msg)
	}
	return fmt.Sprintf("cannot convert result %s: engine returned %s, node expects %s", e.Name, e.Got, e.Want)
}

// Is matches ErrConversion.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }
