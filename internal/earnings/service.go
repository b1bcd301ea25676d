package earnings

import (
	"context"
	"errors"

	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

// DTO is the GET /earnings payload.
type DTO struct {
	ApprovedUSD float64 `json:"approvedUsd"`
	PendingUSD  float64 `json:"pendingUsd"`
}

type projectLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.Project, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Service computes a user's earnings from their project rollups.
type Service struct {
	projects projectLister
	users    userFinder
}

func NewService(projects projectLister, users userFinder) (*Service, error) {
	if projects == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "projects repo is required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	return &Service{projects: projects, users: users}, nil
}

// ForUser returns zeros for a user that does not exist. Store failures are
// reported rather than masked as zero earnings.
func (s *Service) ForUser(ctx context.Context, userID string) (*DTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &DTO{}, nil
		}
		return nil, pkgerrors.Dependency(err, "load user")
	}

	rows, err := s.projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "list projects")
	}

	e := Compute(rows, user.SpentUSD)
	approved, _ := e.Approved.Float64()
	pending, _ := e.Pending.Float64()
	return &DTO{ApprovedUSD: approved, PendingUSD: pending}, nil
}

