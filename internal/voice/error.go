package voice

import "encoding/json"

// PlatformError is the single internal representation of the platform's
// duck-typed error shapes.
type PlatformError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (e *PlatformError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

const fallbackErrorMessage = "Connection failed"

// NormalizeErrorPayload maps whatever error shape the platform emitted —
// {type,message}, {error:{message}}, or {message} — into one PlatformError
// with a usable human-readable message.
func NormalizeErrorPayload(raw json.RawMessage) *PlatformError {
	var shape struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return &PlatformError{Message: fallbackErrorMessage}
	}

	msg := fallbackErrorMessage
	switch {
	case shape.Type == "start-method-error":
		msg = "Failed to start call. Please check the assistant configuration."
	case shape.Error != nil && shape.Error.Message != "":
		msg = shape.Error.Message
	case shape.Message != "":
		msg = shape.Message
	}
	return &PlatformError{Type: shape.Type, Message: msg}
}

// NormalizeErr wraps an ordinary Go error from the client boundary.
func NormalizeErr(err error) *PlatformError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PlatformError); ok {
		return pe
	}
	return &PlatformError{Message: err.Error()}
}
