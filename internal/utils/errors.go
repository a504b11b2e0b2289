package utils

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a series too sparse to model. It is a skip
// signal inside the forecaster batch path, never surfaced as a hard failure.
var ErrInsufficientData = errors.New("insufficient data")

// MalformedInputError reports structurally invalid input (unparseable
// timestamp, out-of-range smoothing constant, missing required field).
// It always fails fast; the core never coerces malformed records.
type MalformedInputError struct {
	Op  string
	Msg string
	Err error
}

func (e *MalformedInputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: malformed input: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: malformed input: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// NewMalformedInput constructs a MalformedInputError.
func NewMalformedInput(op, msg string, err error) error {
	return &MalformedInputError{Op: op, Msg: msg, Err: err}
}

// IsMalformedInput reports whether err is (or wraps) a MalformedInputError.
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}
