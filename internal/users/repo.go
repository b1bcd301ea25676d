package users

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/internal/repo"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"gorm.io/gorm"
)

// GormRepository stores users in the SQL backend.
type GormRepository struct {
	repo.Base
}

// NewGormRepository constructs a users repo bound to the provided GORM DB.
func NewGormRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{Base: repo.NewBase(conn)}
}

// Create inserts a new user, assigning its id.
func (r *GormRepository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// FindByID loads a user by primary key.
func (r *GormRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, db.NotFound(err)
	}
	return &user, nil
}

// FindBySlackID retrieves the user matching the Slack identity.
func (r *GormRepository) FindBySlackID(ctx context.Context, slackID string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("slack_id = ?", slackID).First(&user).Error; err != nil {
		return nil, db.NotFound(err)
	}
	return &user, nil
}

// UpdateProfile writes the personal fields and, when supplied, the address.
func (r *GormRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	columns := map[string]any{
		"email":      update.Email,
		"first_name": update.FirstName,
		"last_name":  update.LastName,
		"updated_at": time.Now().UTC(),
	}
	if update.Birthday != "" {
		columns["birthday"] = update.Birthday
	}
	if a := update.Address; a != nil {
		columns["address_line1"] = a.Line1
		columns["address_line2"] = a.Line2
		columns["address_city"] = a.City
		columns["address_state"] = a.State
		columns["address_postal_code"] = a.PostalCode
		columns["address_country"] = a.Country
	}
	return r.updateColumns(ctx, id, columns)
}

// MarkSessionsInvalidated stamps the cut-off for previously issued tokens.
func (r *GormRepository) MarkSessionsInvalidated(ctx context.Context, id string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"sessions_invalidated_at": at,
		"updated_at":              time.Now().UTC(),
	})
}

func (r *GormRepository) updateColumns(ctx context.Context, id string, columns map[string]any) error {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}
