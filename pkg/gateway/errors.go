package gateway

import (
	"context"
	"errors"
)

// ErrMissingCredential is returned at startup when no API key could be found
// in the secret store. It halts startup.
var ErrMissingCredential = errors.New("missing API credential")

// ErrEmptyResponse is returned when the model answered without any text.
// It only affects the current turn.
var ErrEmptyResponse = errors.New("model returned an empty response")

// InitError is returned at startup when the model client could not be
// configured. It halts startup.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return "initializing model: " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// TransportError wraps any transport, auth, quota or timeout failure reported
// while talking to the model service. It only affects the current turn.
type TransportError struct {
	Err error

	// TimedOut is set when the request hit the configured timeout.
	TimedOut bool
}

func (e *TransportError) Error() string {
	return "model request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because its deadline expired.
func (e *TransportError) Timeout() bool {
	return e.TimedOut || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsTurnError reports whether err is a per-turn failure (ErrEmptyResponse or
// a *TransportError) as opposed to a startup failure.
func IsTurnError(err error) bool {
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var terr *TransportError
	return errors.As(err, &terr)
}

// IsStartupError reports whether err must halt startup.
func IsStartupError(err error) bool {
	if errors.Is(err, ErrMissingCredential) {
		return true
	}
	var ierr *InitError
	return errors.As(err, &ierr)
}
