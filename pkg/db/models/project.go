package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	"gorm.io/gorm"
)

// Project groups sessions and carries the submission artifacts reviewers look at.
type Project struct {
	ID                   string              `gorm:"column:id;type:text;primaryKey"`
	UserID               string              `gorm:"column:user_id;not null;index"`
	Name                 string              `gorm:"column:name;not null"`
	Status               enums.ProjectStatus `gorm:"column:status;type:text;not null;default:'active'"`
	HackatimeProjectName string              `gorm:"column:hackatime_project_name"`
	PlayableURL          string              `gorm:"column:playable_url"`
	CodeURL              string              `gorm:"column:code_url"`
	ScreenshotURL        string              `gorm:"column:screenshot_url"`
	Description          string              `gorm:"column:description"`
	RejectionReason      string              `gorm:"column:rejection_reason"`
	HackatimeHours       float64             `gorm:"column:hackatime_hours;not null;default:0"`
	SubmittedAt          *time.Time          `gorm:"column:submitted_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	// OwnerIDs holds every user linked to the project when the store
	// models ownership as a multi-valued link. UserID is the first of them.
	OwnerIDs []string `gorm:"-"`

	Rollup ProjectRollup `gorm:"-"`
}

// ProjectRollup holds derived hour totals. The hosted store computes these
// as formula fields; the SQL backend derives them from sessions.
type ProjectRollup struct {
	HoursSpent             float64
	PendingHours           float64
	ApprovedHours          float64
	SessionPendingHours    float64
	SessionApprovedHours   float64
	HackatimePendingHours  float64
	HackatimeApprovedHours float64
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TracksHackatime reports whether time comes from Hackatime instead of manual sessions.
func (p Project) TracksHackatime() bool {
	return strings.TrimSpace(p.HackatimeProjectName) != ""
}

// OwnedBy reports whether userID is among the project's owners.
func (p Project) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	return p.UserID == userID || slices.Contains(p.OwnerIDs, userID)
}

// ComputeRollup derives the hour totals from the project's sessions.
func (p *Project) ComputeRollup(sessions []Session) {
	var r ProjectRollup
	for _, s := range sessions {
		if s.EndTime == nil {
			continue
		}
		hours := s.Hours()
		r.HoursSpent += hours
		switch s.Status {
		case enums.SessionStatusSubmitted:
			r.SessionPendingHours += hours
		case enums.SessionStatusApproved:
			r.SessionApprovedHours += hours
		}
	}
	switch p.Status {
	case enums.ProjectStatusSubmitted:
		r.HackatimePendingHours = p.HackatimeHours
	case enums.ProjectStatusApproved:
		r.HackatimeApprovedHours = p.HackatimeHours
	}
	r.HoursSpent = RoundHours(r.HoursSpent + p.HackatimeHours)
	r.SessionPendingHours = RoundHours(r.SessionPendingHours)
	r.SessionApprovedHours = RoundHours(r.SessionApprovedHours)
	r.PendingHours = RoundHours(r.SessionPendingHours + r.HackatimePendingHours)
	r.ApprovedHours = RoundHours(r.SessionApprovedHours + r.HackatimeApprovedHours)
	p.Rollup = r
}
