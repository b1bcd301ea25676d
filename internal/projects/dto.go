package projects

import (
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// ProjectDTO is the transport shape of a project, rollups included.
type ProjectDTO struct {
	ID                     string              `json:"id"`
	Name                   string              `json:"name"`
	Status                 enums.ProjectStatus `json:"status"`
	HackatimeProjectName   string              `json:"hackatimeProjectName,omitempty"`
	PlayableURL            string              `json:"playableUrl,omitempty"`
	CodeURL                string              `json:"codeUrl,omitempty"`
	ScreenshotURL          string              `json:"screenshotUrl,omitempty"`
	Description            string              `json:"description,omitempty"`
	RejectionReason        string              `json:"rejectionReason,omitempty"`
	HackatimeHours         float64             `json:"hackatimeHours"`
	HoursSpent             float64             `json:"hoursSpent"`
	PendingHours           float64             `json:"pendingHours"`
	ApprovedHours          float64             `json:"approvedHours"`
	SessionPendingHours    float64             `json:"sessionPendingHours"`
	SessionApprovedHours   float64             `json:"sessionApprovedHours"`
	HackatimePendingHours  float64             `json:"hackatimePendingHours"`
	HackatimeApprovedHours float64             `json:"hackatimeApprovedHours"`
	SubmittedAt            *time.Time          `json:"submittedAt,omitempty"`
	CreatedAt              time.Time           `json:"createdAt"`
}

// CreateRequest is the POST /projects body.
type CreateRequest struct {
	Name                 string `json:"name" validate:"max=200"`
	HackatimeProjectName string `json:"hackatimeProjectName,omitempty" validate:"max=200"`
}

// EditRequest is the PUT /projects/{id} body. Absent keys are left alone;
// an empty hackatimeProjectName unlinks Hackatime.
type EditRequest struct {
	Name                 *string `json:"name,omitempty" validate:"omitempty,max=200"`
	HackatimeProjectName *string `json:"hackatimeProjectName,omitempty" validate:"omitempty,max=200"`
}

// SubmitRequest carries the review artifacts.
type SubmitRequest struct {
	PlayableURL   string `json:"playableUrl" validate:"omitempty,url,max=2048"`
	CodeURL       string `json:"codeUrl" validate:"omitempty,url,max=2048"`
	ScreenshotURL string `json:"screenshotUrl" validate:"omitempty,url,max=2048"`
	Description   string `json:"description" validate:"max=5000"`
}

func FromModel(p *models.Project) *ProjectDTO {
	if p == nil {
		return nil
	}
	return &ProjectDTO{
		ID:                     p.ID,
		Name:                   p.Name,
		Status:                 p.Status,
		HackatimeProjectName:   p.HackatimeProjectName,
		PlayableURL:            p.PlayableURL,
		CodeURL:                p.CodeURL,
		ScreenshotURL:          p.ScreenshotURL,
		Description:            p.Description,
		RejectionReason:        p.RejectionReason,
		HackatimeHours:         p.HackatimeHours,
		HoursSpent:             p.Rollup.HoursSpent,
		PendingHours:           p.Rollup.PendingHours,
		ApprovedHours:          p.Rollup.ApprovedHours,
		SessionPendingHours:    p.Rollup.SessionPendingHours,
		SessionApprovedHours:   p.Rollup.SessionApprovedHours,
		HackatimePendingHours:  p.Rollup.HackatimePendingHours,
		HackatimeApprovedHours: p.Rollup.HackatimeApprovedHours,
		SubmittedAt:            p.SubmittedAt,
		CreatedAt:              p.CreatedAt,
	}
}

func FromModels(rows []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
