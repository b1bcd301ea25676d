package enums

import (
	"fmt"
	"strings"
)

// ProjectStatus tracks where a project sits in the review pipeline.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusSubmitted ProjectStatus = "submitted"
	ProjectStatusApproved  ProjectStatus = "approved"
	ProjectStatusRejected  ProjectStatus = "rejected"

	// projectStatusFinishedLegacy is what older records carry for submitted projects.
	projectStatusFinishedLegacy = "finished"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusActive,
	ProjectStatusSubmitted,
	ProjectStatusApproved,
	ProjectStatusRejected,
}

// String implements fmt.Stringer.
func (p ProjectStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible without reopening.
func (p ProjectStatus) IsTerminal() bool {
	return p == ProjectStatusApproved || p == ProjectStatusRejected
}

// CanTransitionTo reports whether moving from p to next is allowed.
// allowReopen gates rejected -> active.
func (p ProjectStatus) CanTransitionTo(next ProjectStatus, allowReopen bool) bool {
	switch p {
	case ProjectStatusActive:
		return next == ProjectStatusSubmitted
	case ProjectStatusSubmitted:
		return next == ProjectStatusApproved || next == ProjectStatusRejected
	case ProjectStatusRejected:
		return allowReopen && next == ProjectStatusActive
	default:
		return false
	}
}

// ParseProjectStatus converts raw input into a ProjectStatus. An empty value
// is treated as active and the legacy "finished" value as submitted.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return ProjectStatusActive, nil
	case projectStatusFinishedLegacy:
		return ProjectStatusSubmitted, nil
	}
	for _, candidate := range validProjectStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}
