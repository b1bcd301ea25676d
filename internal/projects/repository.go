package projects

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// Repository persists projects. Every backend returns db.ErrNotFound for
// missing records and fills Project.Rollup on reads.
type Repository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	ListByUser(ctx context.Context, userID string) ([]models.Project, error)
	Update(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Name                 *string
	HackatimeProjectName *string
	Status               *enums.ProjectStatus
	PlayableURL          *string
	CodeURL              *string
	ScreenshotURL        *string
	Description          *string
	RejectionReason      *string
	HackatimeHours       *float64
	SubmittedAt          *time.Time
}

func (c Changes) apply(p *models.Project) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.HackatimeProjectName != nil {
		p.HackatimeProjectName = *c.HackatimeProjectName
	}
	if c.Status != nil {
		p.Status = *c.Status
	}
	if c.PlayableURL != nil {
		p.PlayableURL = *c.PlayableURL
	}
	if c.CodeURL != nil {
		p.CodeURL = *c.CodeURL
	}
	if c.ScreenshotURL != nil {
		p.ScreenshotURL = *c.ScreenshotURL
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.RejectionReason != nil {
		p.RejectionReason = *c.RejectionReason
	}
	if c.HackatimeHours != nil {
		p.HackatimeHours = *c.HackatimeHours
	}
	if c.SubmittedAt != nil {
		t := *c.SubmittedAt
		p.SubmittedAt = &t
	}
}
