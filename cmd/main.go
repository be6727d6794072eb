package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries the process exit status for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

func main() {
	err := Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(1)
}
