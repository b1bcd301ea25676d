package sessions

import (
	"context"

	"github.com/jetfund/jetfund-backend/pkg/airtable"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
)

// Airtable column names on the Sessions table. userId and projectId are
// lookup fields over the linked records and exist for formulas.
const (
	fieldUser            = "user"
	fieldProject         = "project"
	fieldUserID          = "userId"
	fieldProjectID       = "projectId"
	fieldStartTime       = "startTime"
	fieldEndTime         = "endTime"
	fieldGitCommitURL    = "gitCommitUrl"
	fieldImageURL        = "imageUrl"
	fieldStatus          = "status"
	fieldHoursSpent      = "hoursSpent"
	fieldRejectionReason = "rejectionReason"
)

type recordStore interface {
	List(ctx context.Context, table string, params airtable.ListParams) ([]airtable.Record, error)
	Get(ctx context.Context, table, id string) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields map[string]any) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (*airtable.Record, error)
}

// AirtableRepository stores sessions in the hosted base.
type AirtableRepository struct {
	client recordStore
	table  string
}

// NewAirtableRepository binds the repo to the Sessions table.
func NewAirtableRepository(client recordStore, table string) *AirtableRepository {
	return &AirtableRepository{client: client, table: table}
}

func (r *AirtableRepository) Create(ctx context.Context, session *models.Session) error {
	fields := map[string]any{
		fieldUser:      []string{session.UserID},
		fieldProject:   []string{session.ProjectID},
		fieldStartTime: airtable.FormatTime(session.StartTime),
		fieldStatus:    string(session.Status),
	}
	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	created := sessionFromRecord(rec)
	// lookups are not populated on the create response
	if created.UserID == "" {
		created.UserID = session.UserID
	}
	if created.ProjectID == "" {
		created.ProjectID = session.ProjectID
	}
	*session = *created
	return nil
}

func (r *AirtableRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	rec, err := r.client.Get(ctx, r.table, id)
	if err != nil {
		return nil, notFound(err)
	}
	return sessionFromRecord(rec), nil
}

func (r *AirtableRepository) FindUnfinished(ctx context.Context, userID, projectID string) (*models.Session, error) {
	formula := airtable.And(
		airtable.Eq(fieldUserID, userID),
		projectClause(projectID),
		airtable.Or(
			airtable.Eq(fieldStatus, string(enums.SessionStatusOngoing)),
			airtable.Eq(fieldStatus, ""),
			airtable.And(
				airtable.Eq(fieldStatus, string(enums.SessionStatusFinished)),
				airtable.Or(airtable.Eq(fieldGitCommitURL, ""), airtable.Eq(fieldImageURL, "")),
			),
		),
	)
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: formula,
		Sort:            []airtable.Sort{{Field: fieldStartTime, Direction: "desc"}},
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, db.ErrNotFound
	}
	return sessionFromRecord(&records[0]), nil
}

func (r *AirtableRepository) ListByProject(ctx context.Context, projectID string) ([]models.Session, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: airtable.Eq(fieldProjectID, projectID),
		Sort:            []airtable.Sort{{Field: fieldStartTime, Direction: "desc"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(records))
	for i := range records {
		out = append(out, *sessionFromRecord(&records[i]))
	}
	return out, nil
}

func (r *AirtableRepository) Update(ctx context.Context, id string, changes Changes) error {
	fields := map[string]any{}
	if changes.EndTime != nil {
		fields[fieldEndTime] = airtable.FormatTime(*changes.EndTime)
	}
	if changes.Status != nil {
		fields[fieldStatus] = string(*changes.Status)
	}
	if changes.GitCommitURL != nil {
		fields[fieldGitCommitURL] = *changes.GitCommitURL
	}
	if changes.ImageURL != nil {
		fields[fieldImageURL] = *changes.ImageURL
	}
	if changes.RejectionReason != nil {
		fields[fieldRejectionReason] = *changes.RejectionReason
	}
	_, err := r.client.Update(ctx, r.table, id, fields)
	return notFound(err)
}

func (r *AirtableRepository) SubmitFinished(ctx context.Context, projectID string) (int, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: airtable.And(
			airtable.Eq(fieldProjectID, projectID),
			airtable.Eq(fieldStatus, string(enums.SessionStatusFinished)),
		),
		Fields: []string{fieldStatus},
	})
	if err != nil {
		return 0, err
	}
	submitted := 0
	for _, rec := range records {
		if _, err := r.client.Update(ctx, r.table, rec.ID, map[string]any{
			fieldStatus: string(enums.SessionStatusSubmitted),
		}); err != nil {
			return submitted, err
		}
		submitted++
	}
	return submitted, nil
}

func projectClause(projectID string) string {
	if projectID == "" {
		return ""
	}
	return airtable.Eq(fieldProjectID, projectID)
}

func sessionFromRecord(rec *airtable.Record) *models.Session {
	status, err := enums.ParseSessionStatus(rec.String(fieldStatus))
	if err != nil {
		status = enums.SessionStatusOngoing
	}
	s := &models.Session{
		ID:              rec.ID,
		UserID:          firstNonEmpty(rec.FirstLink(fieldUser), rec.String(fieldUserID)),
		ProjectID:       firstNonEmpty(rec.FirstLink(fieldProject), rec.String(fieldProjectID)),
		EndTime:         rec.Time(fieldEndTime),
		GitCommitURL:    rec.String(fieldGitCommitURL),
		ImageURL:        rec.String(fieldImageURL),
		Status:          status,
		RejectionReason: rec.String(fieldRejectionReason),
	}
	if start := rec.Time(fieldStartTime); start != nil {
		s.StartTime = *start
	}
	if created := airtable.ParseTime(rec.CreatedTime); created != nil {
		s.CreatedAt = *created
	}
	if _, ok := rec.Fields[fieldHoursSpent]; ok && s.EndTime != nil {
		s.HoursSpent = models.RoundHours(rec.Float(fieldHoursSpent))
	} else {
		s.HoursSpent = s.Hours()
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func notFound(err error) error {
	if airtable.IsNotFound(err) {
		return db.ErrNotFound
	}
	return err
}
