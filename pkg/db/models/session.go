package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	"gorm.io/gorm"
)

// Session is one timed stretch of work on a project.
type Session struct {
	ID              string              `gorm:"column:id;type:text;primaryKey"`
	UserID          string              `gorm:"column:user_id;not null;index"`
	ProjectID       string              `gorm:"column:project_id;not null;index"`
	StartTime       time.Time           `gorm:"column:start_time;not null"`
	EndTime         *time.Time          `gorm:"column:end_time"`
	GitCommitURL    string              `gorm:"column:git_commit_url"`
	ImageURL        string              `gorm:"column:image_url"`
	Status          enums.SessionStatus `gorm:"column:status;type:text;not null;default:'ongoing'"`
	RejectionReason string              `gorm:"column:rejection_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	HoursSpent float64 `gorm:"-"`
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Hours returns end minus start in hours, rounded to 2 places. Ongoing sessions count as 0.
func (s Session) Hours() float64 {
	if s.EndTime == nil {
		return 0
	}
	return RoundHours(s.EndTime.Sub(s.StartTime).Hours())
}

// HasProof reports whether both proof links are attached.
func (s Session) HasProof() bool {
	return strings.TrimSpace(s.GitCommitURL) != "" && strings.TrimSpace(s.ImageURL) != ""
}

// IsUnfinished reports whether the session still blocks starting a new one:
// it is running, or finished without its proof attached.
func (s Session) IsUnfinished() bool {
	switch s.Status {
	case enums.SessionStatusOngoing:
		return true
	case enums.SessionStatusFinished:
		return !s.HasProof()
	}
	return false
}
