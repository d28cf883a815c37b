// Package kuloerr defines KuLo's error taxonomy: sentinel errors for
// per-stream failure kinds, plus a typed error that carries the process
// exit code a startup failure maps to.
package kuloerr

import "errors"

var (
	// ErrInvalidDuration is returned by util.ParseDuration for any string
	// that doesn't match <integer><unit>.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrStreamGone means the container or pod disappeared (404/410 from the
	// log-stream endpoint). The producer should exit quietly.
	ErrStreamGone = errors.New("stream gone")

	// ErrStreamInterrupted is a transient network/read error. The producer
	// should retry with backoff.
	ErrStreamInterrupted = errors.New("stream interrupted")

	// ErrPermissionDenied is a 403 from the Kubernetes API. Never retried.
	ErrPermissionDenied = errors.New("permission denied")
)

// ExitCode enumerates the process exit codes spec'd in §6.
type ExitCode int

const (
	ExitOK                  ExitCode = 0
	ExitUsageOrValidation   ExitCode = 1
	ExitAuthOrPermission    ExitCode = 2
	ExitConnectionFailure   ExitCode = 3
)

// FatalError pairs an underlying cause with the exit code the CLI entry
// point should return for it.
type FatalError struct {
	Code ExitCode
	Err  error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps err with the given exit code.
func NewFatal(code ExitCode, err error) *FatalError {
	return &FatalError{Code: code, Err: err}
}

// ExitCodeOf extracts the exit code to return for err, defaulting to
// ExitUsageOrValidation when err carries no FatalError.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ExitUsageOrValidation
}
