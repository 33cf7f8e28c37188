package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of session event
type EventType string

const (
	EventLoginSuccess EventType = "login_success"
	EventLoginFailure EventType = "login_failure"
	EventLogout       EventType = "logout"
)

// Subject names for the session events
const (
	SubjectLoginSuccess = "flat.session.login"
	SubjectLoginFailure = "flat.session.login_failed"
	SubjectLogout       = "flat.session.logout"
	SubjectAll          = "flat.session.>"
)

// Subject returns the subject an event type is published on
func (t EventType) Subject() string {
	switch t {
	case EventLoginSuccess:
		return SubjectLoginSuccess
	case EventLoginFailure:
		return SubjectLoginFailure
	default:
		return SubjectLogout
	}
}

// SessionEvent is broadcast whenever the session store changes state.
// It never carries the auth token.
type SessionEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	UserUUID string `json:"userUUID,omitempty"`
	Name     string `json:"name,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewSessionEvent creates an event with a fresh id
func NewSessionEvent(t EventType) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// Marshal converts the event to JSON bytes
func (e *SessionEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalSessionEvent unmarshals an event from JSON
func UnmarshalSessionEvent(data []byte) (*SessionEvent, error) {
	var e SessionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
