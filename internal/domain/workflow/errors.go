package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced workflow does not exist
	ErrNotFound = errors.New("workflow not found")

	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyCompleted is returned when a terminal workflow is asked to move
	ErrAlreadyCompleted = errors.New("workflow already completed")

	// ErrMissingArgument is returned when a required call input is absent
	ErrMissingArgument = errors.New("missing required argument")

	// ErrInvalidArgument is returned when a call input is malformed
	ErrInvalidArgument = errors.New("invalid argument value")

	// ErrStorage is returned when the underlying persistence primitive fails
	ErrStorage = errors.New("storage operation failed")

	// ErrOverflow is returned when the workflow counter is exhausted
	ErrOverflow = errors.New("arithmetic overflow")
)

// Code is the numeric failure code reported to callers and indexers.
type Code uint16

const (
	CodeOK                Code = 0
	CodeNotFound          Code = 1
	CodeInvalidTransition Code = 2
	CodeAlreadyCompleted  Code = 4
	CodeMissingArgument   Code = 7
	CodeInvalidArgument   Code = 8
	CodeStorage           Code = 9
	CodeOverflow          Code = 10
	CodeUnknown           Code = 0xFFFF
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrNotFound, CodeNotFound},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrAlreadyCompleted, CodeAlreadyCompleted},
	{ErrMissingArgument, CodeMissingArgument},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrStorage, CodeStorage},
	{ErrOverflow, CodeOverflow},
}

// CodeOf maps an error to its failure code. Business-rule kinds are checked
// before ErrStorage so a wrapped NotFound is never reported as a storage fault.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// String returns the failure kind name
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NotFound"
	case CodeInvalidTransition:
		return "InvalidTransition"
	case CodeAlreadyCompleted:
		return "AlreadyCompleted"
	case CodeMissingArgument:
		return "MissingArgument"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeStorage:
		return "StorageError"
	case CodeOverflow:
		return "Overflow"
	default:
		return "Unknown"
	}
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
