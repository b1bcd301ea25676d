package users

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/types"
)

// Repository is the persistence surface shared by the SQL and Airtable backends.
// Missing records are reported as db.ErrNotFound.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindBySlackID(ctx context.Context, slackID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	MarkSessionsInvalidated(ctx context.Context, id string, at time.Time) error
}

// ProfileUpdate carries the writable profile fields. An empty Birthday or a
// nil Address leaves the stored value untouched.
type ProfileUpdate struct {
	Email     string
	FirstName string
	LastName  string
	Birthday  string
	Address   *types.Address
}
