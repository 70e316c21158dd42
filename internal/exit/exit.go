package exit

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	CodeUsage  = 1
	CodeSource = 2
	CodeCache  = 3
)

// Error carries the exit code the process should terminate with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, err error) error {
	return &Error{Code: code, Err: err}
}

// Code returns the exit code for err: the code of a wrapped *Error, or
// CodeUsage for any other non-nil error.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *Error
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return CodeUsage
}
