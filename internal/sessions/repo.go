package sessions

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/internal/repo"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	"gorm.io/gorm"
)

// GormRepository stores sessions in the SQL backend.
type GormRepository struct {
	repo.Base
}

// NewGormRepository constructs a sessions repo bound to the provided GORM DB.
func NewGormRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{Base: repo.NewBase(conn)}
}

func (r *GormRepository) Create(ctx context.Context, session *models.Session) error {
	if err := r.DB(ctx).Create(session).Error; err != nil {
		return err
	}
	session.HoursSpent = session.Hours()
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.DB(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, db.NotFound(err)
	}
	session.HoursSpent = session.Hours()
	return &session, nil
}

func (r *GormRepository) FindUnfinished(ctx context.Context, userID, projectID string) (*models.Session, error) {
	q := r.DB(ctx).
		Where("user_id = ?", userID).
		Where("(status = ? OR (status = ? AND (git_commit_url = '' OR image_url = '')))",
			enums.SessionStatusOngoing, enums.SessionStatusFinished)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}

	var session models.Session
	if err := q.Order("start_time DESC").First(&session).Error; err != nil {
		return nil, db.NotFound(err)
	}
	session.HoursSpent = session.Hours()
	return &session, nil
}

func (r *GormRepository) ListByProject(ctx context.Context, projectID string) ([]models.Session, error) {
	var rows []models.Session
	if err := r.DB(ctx).
		Where("project_id = ?", projectID).
		Order("start_time DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].HoursSpent = rows[i].Hours()
	}
	return rows, nil
}

func (r *GormRepository) Update(ctx context.Context, id string, changes Changes) error {
	columns := map[string]any{"updated_at": time.Now().UTC()}
	if changes.EndTime != nil {
		columns["end_time"] = changes.EndTime.UTC()
	}
	if changes.Status != nil {
		columns["status"] = *changes.Status
	}
	if changes.GitCommitURL != nil {
		columns["git_commit_url"] = *changes.GitCommitURL
	}
	if changes.ImageURL != nil {
		columns["image_url"] = *changes.ImageURL
	}
	if changes.RejectionReason != nil {
		columns["rejection_reason"] = *changes.RejectionReason
	}

	res := r.DB(ctx).Model(&models.Session{}).Where("id = ?", id).UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *GormRepository) SubmitFinished(ctx context.Context, projectID string) (int, error) {
	res := r.DB(ctx).
		Model(&models.Session{}).
		Where("project_id = ? AND status = ?", projectID, enums.SessionStatusFinished).
		UpdateColumns(map[string]any{
			"status":     enums.SessionStatusSubmitted,
			"updated_at": time.Now().UTC(),
		})
	return int(res.RowsAffected), res.Error
}
