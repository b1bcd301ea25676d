package projects

import (
	"context"

	"github.com/jetfund/jetfund-backend/pkg/airtable"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// Airtable column names on the Projects table. The rollup columns are
// formula fields maintained by the base.
const (
	fieldName                   = "name"
	fieldUser                   = "user"
	fieldUserID                 = "userId"
	fieldStatus                 = "status"
	fieldHackatimeProjectName   = "hackatimeProjectName"
	fieldPlayableURL            = "playableUrl"
	fieldCodeURL                = "codeUrl"
	fieldScreenshotURL          = "screenshotUrl"
	fieldDescription            = "description"
	fieldRejectionReason        = "rejectionReason"
	fieldHackatimeHours         = "hackatimeHours"
	fieldSubmittedAt            = "submittedAt"
	fieldHoursSpent             = "hoursSpent"
	fieldPendingHours           = "pendingHours"
	fieldApprovedHours          = "approvedHours"
	fieldSessionPendingHours    = "sessionPendingHours"
	fieldSessionApprovedHours   = "sessionApprovedHours"
	fieldHackatimePendingHours  = "hackatimePendingHours"
	fieldHackatimeApprovedHours = "hackatimeApprovedHours"
)

type recordStore interface {
	List(ctx context.Context, table string, params airtable.ListParams) ([]airtable.Record, error)
	Get(ctx context.Context, table, id string) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields map[string]any) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (*airtable.Record, error)
	Delete(ctx context.Context, table, id string) error
}

// AirtableRepository stores projects in the hosted base.
type AirtableRepository struct {
	client recordStore
	table  string
}

// NewAirtableRepository binds the repo to the Projects table.
func NewAirtableRepository(client recordStore, table string) *AirtableRepository {
	return &AirtableRepository{client: client, table: table}
}

func (r *AirtableRepository) Create(ctx context.Context, project *models.Project) error {
	fields := map[string]any{
		fieldName:   project.Name,
		fieldUser:   []string{project.UserID},
		fieldStatus: string(project.Status),
	}
	if project.HackatimeProjectName != "" {
		fields[fieldHackatimeProjectName] = project.HackatimeProjectName
	}
	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	created := projectFromRecord(rec)
	if created.UserID == "" {
		created.UserID = project.UserID
	}
	*project = *created
	return nil
}

func (r *AirtableRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	rec, err := r.client.Get(ctx, r.table, id)
	if err != nil {
		return nil, notFound(err)
	}
	return projectFromRecord(rec), nil
}

func (r *AirtableRepository) ListByUser(ctx context.Context, userID string) ([]models.Project, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: airtable.Eq(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(records))
	for i := range records {
		out = append(out, *projectFromRecord(&records[i]))
	}
	return out, nil
}

func (r *AirtableRepository) Update(ctx context.Context, id string, changes Changes) error {
	fields := map[string]any{}
	setString := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	setString(fieldName, changes.Name)
	setString(fieldHackatimeProjectName, changes.HackatimeProjectName)
	setString(fieldPlayableURL, changes.PlayableURL)
	setString(fieldCodeURL, changes.CodeURL)
	setString(fieldScreenshotURL, changes.ScreenshotURL)
	setString(fieldDescription, changes.Description)
	setString(fieldRejectionReason, changes.RejectionReason)
	if changes.Status != nil {
		fields[fieldStatus] = string(*changes.Status)
	}
	if changes.HackatimeHours != nil {
		fields[fieldHackatimeHours] = *changes.HackatimeHours
	}
	if changes.SubmittedAt != nil {
		fields[fieldSubmittedAt] = airtable.FormatTime(*changes.SubmittedAt)
	}
	_, err := r.client.Update(ctx, r.table, id, fields)
	return notFound(err)
}

func (r *AirtableRepository) Delete(ctx context.Context, id string) error {
	return notFound(r.client.Delete(ctx, r.table, id))
}

func projectFromRecord(rec *airtable.Record) *models.Project {
	status, err := enums.ParseProjectStatus(rec.String(fieldStatus))
	if err != nil {
		status = enums.ProjectStatusActive
	}
	owners := rec.Links(fieldUser)
	userID := rec.FirstLink(fieldUser)
	if userID == "" {
		userID = rec.String(fieldUserID)
	}
	p := &models.Project{
		ID:                   rec.ID,
		UserID:               userID,
		OwnerIDs:             owners,
		Name:                 rec.String(fieldName),
		Status:               status,
		HackatimeProjectName: rec.String(fieldHackatimeProjectName),
		PlayableURL:          rec.String(fieldPlayableURL),
		CodeURL:              rec.String(fieldCodeURL),
		ScreenshotURL:        rec.String(fieldScreenshotURL),
		Description:          rec.String(fieldDescription),
		RejectionReason:      rec.String(fieldRejectionReason),
		HackatimeHours:       rec.Float(fieldHackatimeHours),
		SubmittedAt:          rec.Time(fieldSubmittedAt),
		Rollup: models.ProjectRollup{
			HoursSpent:             models.RoundHours(rec.Float(fieldHoursSpent)),
			PendingHours:           models.RoundHours(rec.Float(fieldPendingHours)),
			ApprovedHours:          models.RoundHours(rec.Float(fieldApprovedHours)),
			SessionPendingHours:    models.RoundHours(rec.Float(fieldSessionPendingHours)),
			SessionApprovedHours:   models.RoundHours(rec.Float(fieldSessionApprovedHours)),
			HackatimePendingHours:  models.RoundHours(rec.Float(fieldHackatimePendingHours)),
			HackatimeApprovedHours: models.RoundHours(rec.Float(fieldHackatimeApprovedHours)),
		},
	}
	if created := airtable.ParseTime(rec.CreatedTime); created != nil {
		p.CreatedAt = *created
	}
	return p
}

func notFound(err error) error {
	if airtable.IsNotFound(err) {
		return db.ErrNotFound
	}
	return err
}
