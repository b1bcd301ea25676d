package sessions

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// Repository is the persistence surface shared by the SQL and Airtable backends.
// Missing records are reported as db.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	// FindUnfinished returns the user's newest session that is running or
	// finished without proof. An empty projectID matches any project.
	FindUnfinished(ctx context.Context, userID, projectID string) (*models.Session, error)
	// ListByProject returns the project's sessions, newest start first.
	ListByProject(ctx context.Context, projectID string) ([]models.Session, error)
	Update(ctx context.Context, id string, changes Changes) error
	// SubmitFinished moves every finished session of the project to submitted.
	SubmitFinished(ctx context.Context, projectID string) (int, error)
}

// Changes lists the fields a write touches. Nil pointers are left alone.
type Changes struct {
	EndTime         *time.Time
	Status          *enums.SessionStatus
	GitCommitURL    *string
	ImageURL        *string
	RejectionReason *string
}

func (c Changes) apply(s *models.Session) {
	if c.EndTime != nil {
		end := *c.EndTime
		s.EndTime = &end
	}
	if c.Status != nil {
		s.Status = *c.Status
	}
	if c.GitCommitURL != nil {
		s.GitCommitURL = *c.GitCommitURL
	}
	if c.ImageURL != nil {
		s.ImageURL = *c.ImageURL
	}
	if c.RejectionReason != nil {
		s.RejectionReason = *c.RejectionReason
	}
	s.HoursSpent = s.Hours()
}
