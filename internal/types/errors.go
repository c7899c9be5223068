package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrUnknownSite    = errors.New("unknown site")
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrDataStoreAccess marks persistence failures of the settings cache.
	ErrDataStoreAccess = errors.New("data store read/write error")
	// ErrTransport marks network and HTTP level failures.
	ErrTransport = errors.New("transport error")
	// ErrInvalidAuth is returned by the transport on 401/403 responses. It also wraps ErrTransport.
	ErrInvalidAuth = errors.New("requested with invalid authentication")
	// ErrMalformedResponse is a transport success whose body is not a settings object.
	ErrMalformedResponse = errors.New("response does not contain editor settings")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}

// TransportError is a failed request. Message is what observers see.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string { return e.Message }

// Unwrap makes errors.Is match ErrTransport, and ErrInvalidAuth for 401/403.
func (e *TransportError) Unwrap() []error {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return []error{ErrTransport, ErrInvalidAuth}
	}
	return []error{ErrTransport}
}
