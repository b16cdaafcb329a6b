package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the sentinel for empty or malformed note input.
	// It is the only error class the pipeline fails fast on.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAdapterUnavailable marks LLM transport failures (timeout, network,
	// provider 5xx). Recovered locally by degrading to pattern-only.
	ErrAdapterUnavailable = errors.New("llm adapter unavailable")
	// ErrResponseFormat marks an LLM response that could not be parsed into
	// the requested schema. Never retried.
	ErrResponseFormat = errors.New("llm response format")
)

// InputError fails the pipeline fast with no partial result.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return fmt.Sprintf("input: %s", e.Reason) }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func NewInputError(format string, args ...any) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// AdapterError wraps any failure of the external LLM collaborator. The
// Transient flag drives the single bounded retry: parse failures are never
// transient.
type AdapterError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	if e.Transient {
		return ErrAdapterUnavailable
	}
	return ErrResponseFormat
}

// IntelligenceBuildError is non-fatal: the pipeline continues with an empty
// intelligence bundle carrying the message.
type IntelligenceBuildError struct {
	Stage string
	Err   error
}

func (e *IntelligenceBuildError) Error() string {
	return fmt.Sprintf("intelligence %s: %v", e.Stage, e.Err)
}

func (e *IntelligenceBuildError) Unwrap() error { return e.Err }

func IsInputError(err error) bool { return errors.Is(err, ErrInvalidInput) }

func IsTransientAdapterError(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Transient
	}
	return errors.Is(err, ErrAdapterUnavailable)
}
