package main

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitSuccess = 0
	// ExitFailure means at least one package failed.
	ExitFailure = 1
	// ExitFatal means the run could not start: config, manifest, privilege or lock.
	ExitFatal = 2
)

// ExitError carries an exit code out of cobra RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func fatal(err error) *ExitError {
	return &ExitError{Code: ExitFatal, Err: err}
}

// exitCode maps a command error onto a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFatal
}
