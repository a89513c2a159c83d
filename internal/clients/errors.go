package clients

import (
	"fmt"
)

// TransportError is a failed call to the store API: a network failure, a
// non-success status, an open circuit, or a response that could not be used
type TransportError struct {
	Op         string
	StatusCode int
	// Message is the reason reported by the server, if any
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := "store api " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Reason returns the server-reported reason, empty when the server gave none
func (e *TransportError) Reason() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
