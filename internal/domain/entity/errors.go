package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLocator    = errors.New("invalid locator")
	ErrUnsupportedEngine = errors.New("unsupported engine")
	ErrDriver            = errors.New("driver error")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrRetryExhausted    = errors.New("retry exhausted")
	ErrPageNotRegistered = errors.New("page not registered")
	ErrScopeOrder        = errors.New("timeout scope closed out of order")
	ErrElementNotFound   = errors.New("element not found")
	ErrInvalidSettings   = errors.New("invalid settings")
)

// DriverError wraps a failure reported by the native engine.
type DriverError struct {
	Op  string
	Err error
}

// NewDriverError returns nil when err is nil.
func NewDriverError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DriverError{Op: op, Err: err}
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

func (e *DriverError) Is(target error) bool { return target == ErrDriver }
