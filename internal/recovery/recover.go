// Package recovery converts panics raised by user-provided code (function
// instances, table scans) into errors, so one bad call cannot crash the
// process. Fatal runtime errors such as stack exhaustion or running out of
// memory cannot be recovered and still terminate the process.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PanicError is a recovered panic.
type PanicError struct {
	Operation string
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func recovered(logger *slog.Logger, level slog.Level, operation string, r any) *PanicError {
	stack := debug.Stack()
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), level, "Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(stack),
	)
	return &PanicError{Operation: operation, Value: r, Stack: stack}
}

// Call runs fn and converts a panic into a *PanicError.
//
// Example:
//
//	err := recovery.Call(logger, "evaluate", func() error {
//	    return program.Run(env)
//	})
func Call(logger *slog.Logger, operation string, fn func() error) error {
	return CallLevel(logger, slog.LevelError, operation, fn)
}

// CallLevel is Call with the recovered panic logged at level. Hot paths
// that report the failure elsewhere use slog.LevelDebug.
func CallLevel(logger *slog.Logger, level slog.Level, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(logger, level, operation, r)
		}
	}()
	return fn()
}

// Value runs fn and converts a panic into a zero result and a *PanicError.
func Value[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = recovered(logger, slog.LevelError, operation, r)
		}
	}()
	return fn()
}

// ToStatus converts a recovered panic into a gRPC Internal error. Other
// errors are returned unchanged.
func ToStatus(err error) error {
	var pe *PanicError
	if errors.As(err, &pe) {
		return status.Errorf(codes.Internal, "%s panicked: %v", pe.Operation, pe.Value)
	}
	return err
}
