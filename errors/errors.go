// Package errors classifies daemon errors as transient, invalid, or fatal so
// the workflow loop, adapters, and dispatch engines can decide what to retry,
// what to log, and what must abort the process.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass is the classification used to decide retry/abort behavior.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors caused by bad input or configuration.
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop the process.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors for conditions named directly in the error taxonomy.
var (
	ErrAlreadyStarted  = errors.New("adapter already started")
	ErrNotStarted      = errors.New("adapter not started")
	ErrNoConnection    = errors.New("no connection available")
	ErrConnectionLost  = errors.New("connection lost")
	ErrConnectTimeout  = errors.New("connection timeout")

	ErrInvalidSchedule = errors.New("invalid pipeline schedule")
	ErrUnknownPipeline = errors.New("unknown pipeline")
	ErrUnknownPhase    = errors.New("unknown phase")
	ErrUnresolvedClass = errors.New("unresolved class-path")

	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")

	ErrHandlerFailed = errors.New("dispatch handler failed")
)

// ClassifiedError wraps an error with component/operation context and a class.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}
	if errors.Is(err, ErrConnectTimeout) || errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	low := strings.ToLower(err.Error())
	for _, p := range []string{"timeout", "connection", "network", "temporary", "unavailable", "busy"} {
		if strings.Contains(low, p) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err should abort the process.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrInvalidSchedule) || errors.Is(err, ErrUnresolvedClass)
}

// IsInvalid reports whether err stems from bad input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}
	return false
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{Class: class, Err: err, Message: message, Component: component, Operation: operation}
}

// Wrap produces "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps err as transient with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrapped, component, method, wrapped.Error())
}

// WrapFatal wraps err as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrapped, component, method, wrapped.Error())
}

// WrapInvalid wraps err as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrapped, component, method, wrapped.Error())
}
