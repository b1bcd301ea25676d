package sessions

import (
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// SessionDTO is the transport shape of a session.
type SessionDTO struct {
	ID              string              `json:"id"`
	ProjectID       string              `json:"projectId"`
	StartTime       time.Time           `json:"startTime"`
	EndTime         *time.Time          `json:"endTime,omitempty"`
	GitCommitURL    string              `json:"gitCommitUrl"`
	ImageURL        string              `json:"imageUrl"`
	Status          enums.SessionStatus `json:"status"`
	HoursSpent      float64             `json:"hoursSpent"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
}

// StartRequest is the POST /sessions/start body.
type StartRequest struct {
	Project string `json:"project" validate:"max=64"`
}

// FinishRequest is the POST /sessions/finish body.
type FinishRequest struct {
	SessionID string `json:"sessionId" validate:"max=64"`
}

// ProofRequest carries the commit link and screenshot for review.
type ProofRequest struct {
	SessionID    string `json:"sessionId,omitempty" validate:"max=64"`
	GitCommitURL string `json:"gitCommitUrl" validate:"omitempty,url,max=2048"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,url,max=2048"`
}

// TotalTimeDTO is the GET /projects/{id}/total-time payload.
type TotalTimeDTO struct {
	TotalHours float64 `json:"totalHours"`
}

func FromModel(s *models.Session) *SessionDTO {
	if s == nil {
		return nil
	}
	return &SessionDTO{
		ID:              s.ID,
		ProjectID:       s.ProjectID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		GitCommitURL:    s.GitCommitURL,
		ImageURL:        s.ImageURL,
		Status:          s.Status,
		HoursSpent:      s.HoursSpent,
		RejectionReason: s.RejectionReason,
	}
}

func FromModels(rows []models.Session) []SessionDTO {
	out := make([]SessionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
