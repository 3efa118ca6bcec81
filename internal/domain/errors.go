package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrFeedbackPending  = errors.New("feedback pending")
	ErrNoActiveSession  = errors.New("no active session")

	ErrMessageTooShort = errors.New("message too short")
	ErrMessageTooLong  = errors.New("message too long")

	ErrTurnLimitReached = errors.New("turn limit reached, end the session to continue")
	ErrSendInFlight     = errors.New("a message is already being sent")
	ErrSessionNotActive = errors.New("session is not active")
	ErrEndInFlight      = errors.New("session end already in progress")
	ErrEndDeclined      = errors.New("session end not confirmed")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrCredentialNotFound = errors.New("credential not found")
)

// ValidationError is a local rejection; it never reaches the network.
type ValidationError struct {
	Field  string
	Reason error
	Length int
	Limit  int
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Reason, ErrMessageTooShort):
		return fmt.Sprintf("%s: %s (%d characters, minimum %d)", e.Field, e.Reason, e.Length, e.Limit)
	case errors.Is(e.Reason, ErrMessageTooLong):
		return fmt.Sprintf("%s: %s (%d characters, maximum %d)", e.Field, e.Reason, e.Length, e.Limit)
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// TransportError reports a failed gateway call: network failure, non-2xx
// status, or an envelope with success=false.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EnvelopeError carries the message of a success=false envelope.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return "request was not successful"
	}
	return e.Message
}
