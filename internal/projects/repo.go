package projects

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/internal/repo"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"gorm.io/gorm"
)

// GormRepository stores projects in the SQL backend and derives the hour
// rollups from the sessions table on read.
type GormRepository struct {
	repo.Base
}

// NewGormRepository constructs a projects repo bound to the provided GORM DB.
func NewGormRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{Base: repo.NewBase(conn)}
}

func (r *GormRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.DB(ctx).Create(project).Error; err != nil {
		return err
	}
	project.ComputeRollup(nil)
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.DB(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, db.NotFound(err)
	}

	var sessions []models.Session
	if err := r.DB(ctx).Where("project_id = ?", id).Find(&sessions).Error; err != nil {
		return nil, err
	}
	project.ComputeRollup(sessions)
	return &project, nil
}

func (r *GormRepository) ListByUser(ctx context.Context, userID string) ([]models.Project, error) {
	var rows []models.Project
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]string, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.ID)
	}
	var sessions []models.Session
	if err := r.DB(ctx).Where("project_id IN ?", ids).Find(&sessions).Error; err != nil {
		return nil, err
	}
	byProject := make(map[string][]models.Session, len(rows))
	for _, s := range sessions {
		byProject[s.ProjectID] = append(byProject[s.ProjectID], s)
	}
	for i := range rows {
		rows[i].ComputeRollup(byProject[rows[i].ID])
	}
	return rows, nil
}

func (r *GormRepository) Update(ctx context.Context, id string, changes Changes) error {
	columns := map[string]any{"updated_at": time.Now().UTC()}
	if changes.Name != nil {
		columns["name"] = *changes.Name
	}
	if changes.HackatimeProjectName != nil {
		columns["hackatime_project_name"] = *changes.HackatimeProjectName
	}
	if changes.Status != nil {
		columns["status"] = *changes.Status
	}
	if changes.PlayableURL != nil {
		columns["playable_url"] = *changes.PlayableURL
	}
	if changes.CodeURL != nil {
		columns["code_url"] = *changes.CodeURL
	}
	if changes.ScreenshotURL != nil {
		columns["screenshot_url"] = *changes.ScreenshotURL
	}
	if changes.Description != nil {
		columns["description"] = *changes.Description
	}
	if changes.RejectionReason != nil {
		columns["rejection_reason"] = *changes.RejectionReason
	}
	if changes.HackatimeHours != nil {
		columns["hackatime_hours"] = *changes.HackatimeHours
	}
	if changes.SubmittedAt != nil {
		columns["submitted_at"] = changes.SubmittedAt.UTC()
	}

	res := r.DB(ctx).Model(&models.Project{}).Where("id = ?", id).UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes the project. Its sessions go with it through the foreign key cascade.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}
