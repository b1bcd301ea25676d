package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event. Values double as metric labels.
type Type string

const (
	TypeUserCreated      Type = "user_created"
	TypeSignIn           Type = "sign_in"
	TypeProjectCreated   Type = "project_created"
	TypeProjectSubmitted Type = "project_submitted"
	TypeSessionStarted   Type = "session_started"
	TypeSessionFinished  Type = "session_finished"
	TypeSessionSubmitted Type = "session_submitted"
)

const envelopeVersion = 1

// Actor identifies who produced the event.
type Actor struct {
	UserID  string `json:"userId"`
	SlackID string `json:"slackId,omitempty"`
}

// Event is what services hand to the publisher.
type Event struct {
	Type      Type
	Actor     Actor
	SubjectID string
	Data      any
}

// Envelope is the stable message body published on the events topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	Type       Type            `json:"type"`
	SubjectID  string          `json:"subjectId,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      Actor           `json:"actor"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(evt Event, now time.Time) (Envelope, error) {
	env := Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		Type:       evt.Type,
		SubjectID:  evt.SubjectID,
		OccurredAt: now.UTC(),
		Actor:      evt.Actor,
	}
	if evt.Data != nil {
		raw, err := json.Marshal(evt.Data)
		if err != nil {
			return Envelope{}, err
		}
		env.Data = raw
	}
	return env, nil
}
