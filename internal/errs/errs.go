package errs

import (
	"errors"
	"fmt"
)

// Kinds of failure surfaced by the core. Match with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUpstream        = errors.New("upstream error")
	ErrProtocol        = errors.New("protocol error")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error carries a kind, a message meant for the caller and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Msg: msg}
}

func Upstream(msg string, cause error) error {
	return &Error{Kind: ErrUpstream, Msg: msg, Err: cause}
}

func Protocol(msg string, cause error) error {
	return &Error{Kind: ErrProtocol, Msg: msg, Err: cause}
}

func Unauthenticated(msg string) error {
	return &Error{Kind: ErrUnauthenticated, Msg: msg}
}

// Message returns the caller-facing message of err, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
