package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports malformed phase or indicator parameters and
// programming-contract violations such as mismatched input lengths.
// It aborts the run of the affected instrument.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	if e.Op == "" {
		return "configuration: " + e.Msg
	}
	return "configuration: " + e.Op + ": " + e.Msg
}

// Errorf builds a *ConfigurationError for op.
func Errorf(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WriteError reports a failed bulk write for one instrument. Offset is the
// index of the first record of the failed batch within that instrument's
// record sequence. Writes are not retried.
type WriteError struct {
	Symbol string
	Offset int
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s at offset %d: %v", e.Symbol, e.Offset, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
