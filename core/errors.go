package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized         = errors.New("client is not initialized")
	ErrNotConnected           = errors.New("client is not connected")
	ErrConnectInProgress      = errors.New("connect already in progress")
	ErrBootstrapFailed        = errors.New("bootstrap request failed")
	ErrTransportInitFailed    = errors.New("transport initialization failed")
	ErrTransportConnectFailed = errors.New("transport connect failed")
	ErrMalformedMessage       = errors.New("malformed message")
	ErrInvalidSessionParams   = errors.New("invalid connection info")
	ErrCompletionFailed       = errors.New("transport request failed")
)

// BootstrapError is returned when the bootstrap endpoint answers with a
// non-2xx status or a body that cannot be used to join a session.
type BootstrapError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *BootstrapError) Error() string {
	switch {
	case e.Status != 0 && (e.Status < 200 || e.Status >= 300):
		return fmt.Sprintf("bootstrap: POST %s: status %d: %s", e.URL, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("bootstrap: POST %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("bootstrap: POST %s failed", e.URL)
	}
}

func (e *BootstrapError) Unwrap() error { return e.Err }

func (e *BootstrapError) Is(target error) bool { return target == ErrBootstrapFailed }

// TransportError wraps a media engine failure. Kind is one of
// ErrTransportInitFailed or ErrTransportConnectFailed.
type TransportError struct {
	Op   string
	Kind error
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == e.Kind }

// MalformedMessageError reports an inbound protocol message whose payload
// is missing required fields or cannot be decoded.
type MalformedMessageError struct {
	Type string
	Err  error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed %q message: %v", e.Type, e.Err)
}

func (e *MalformedMessageError) Unwrap() error { return e.Err }

func (e *MalformedMessageError) Is(target error) bool { return target == ErrMalformedMessage }
