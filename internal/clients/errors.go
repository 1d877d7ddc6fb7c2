package clients

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TransportError covers timeouts, unreachable hosts, aborted requests and
// undecodable responses. Status is 0 when no HTTP response was received.
type TransportError struct {
	Status  int
	Message string
	cause   error
}

func newTransportError(status int, cause error) *TransportError {
	return &TransportError{Status: status, Message: cause.Error(), cause: cause}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("clients: transport error (status %d): %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.cause
}

// BusinessError is an envelope whose code is not the success code.
type BusinessError struct {
	Code    string
	Message string
	Data    json.RawMessage
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clients: business error %s", e.Code)
	}
	return fmt.Sprintf("clients: business error %s: %s", e.Code, e.Message)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsBusiness reports whether err is a non-success envelope.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// UserMessage returns the text suitable for a banner.
func UserMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if IsTransport(err) {
		return "Network unavailable, please try again"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
