package enums

import (
	"fmt"
	"strings"
)

// SessionStatus tracks a timed work session from start to review.
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusFinished  SessionStatus = "finished"
	SessionStatusSubmitted SessionStatus = "submitted"
	SessionStatusApproved  SessionStatus = "approved"
	SessionStatusRejected  SessionStatus = "rejected"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusOngoing,
	SessionStatusFinished,
	SessionStatusSubmitted,
	SessionStatusApproved,
	SessionStatusRejected,
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusOngoing:   {SessionStatusFinished},
	SessionStatusFinished:  {SessionStatusFinished, SessionStatusSubmitted, SessionStatusApproved, SessionStatusRejected},
	SessionStatusSubmitted: {SessionStatusApproved, SessionStatusRejected},
	SessionStatusRejected:  {SessionStatusFinished},
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// finished -> finished covers attaching proof to a finished session.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, candidate := range sessionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts raw input into a SessionStatus. An empty value
// is treated as ongoing.
func ParseSessionStatus(value string) (SessionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return SessionStatusOngoing, nil
	}
	for _, candidate := range validSessionStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
