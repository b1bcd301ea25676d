package hackatime

import (
	"context"
	"errors"
	"strings"

	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

const msgMissingSlackID = "Missing Slack ID."

type statsSource interface {
	UserStats(ctx context.Context, slackID string) (*StatsResponse, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Service resolves the caller's Slack id and proxies their stats.
type Service struct {
	stats statsSource
	users userFinder
}

func NewService(stats statsSource, users userFinder) (*Service, error) {
	if stats == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hackatime client is required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	return &Service{stats: stats, users: users}, nil
}

// StatsForUser returns the Hackatime stats of the authenticated user.
func (s *Service) StatsForUser(ctx context.Context, userID string) (*StatsResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Validation(msgMissingSlackID)
		}
		return nil, pkgerrors.Dependency(err, "load user")
	}
	if strings.TrimSpace(user.SlackID) == "" {
		return nil, pkgerrors.Validation(msgMissingSlackID)
	}
	return s.stats.UserStats(ctx, user.SlackID)
}
