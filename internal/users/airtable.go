package users

import (
	"context"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/airtable"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Airtable column names on the Users table.
const (
	fieldSlackID               = "slackId"
	fieldName                  = "name"
	fieldEmail                 = "email"
	fieldFirstName             = "firstName"
	fieldLastName              = "lastName"
	fieldBirthday              = "birthday"
	fieldAddressLine1          = "addressLine1"
	fieldAddressLine2          = "addressLine2"
	fieldCity                  = "city"
	fieldState                 = "state"
	fieldPostalCode            = "postalCode"
	fieldCountry               = "country"
	fieldSpentUSD              = "spentUsd"
	fieldSessionsInvalidatedAt = "sessionsInvalidatedAt"
)

type recordStore interface {
	Get(ctx context.Context, table, id string) (*airtable.Record, error)
	FindFirst(ctx context.Context, table, formula string) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields map[string]any) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (*airtable.Record, error)
}

// AirtableRepository stores users in the hosted base.
type AirtableRepository struct {
	client recordStore
	table  string
}

// NewAirtableRepository binds the repo to the Users table.
func NewAirtableRepository(client recordStore, table string) *AirtableRepository {
	return &AirtableRepository{client: client, table: table}
}

func (r *AirtableRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	rec, err := r.client.Get(ctx, r.table, id)
	if err != nil {
		return nil, notFound(err)
	}
	return userFromRecord(rec), nil
}

func (r *AirtableRepository) FindBySlackID(ctx context.Context, slackID string) (*models.User, error) {
	rec, err := r.client.FindFirst(ctx, r.table, airtable.Eq(fieldSlackID, slackID))
	if err != nil {
		return nil, notFound(err)
	}
	return userFromRecord(rec), nil
}

func (r *AirtableRepository) Create(ctx context.Context, user *models.User) error {
	rec, err := r.client.Create(ctx, r.table, map[string]any{
		fieldSlackID: user.SlackID,
		fieldName:    user.Name,
		fieldEmail:   user.Email,
	})
	if err != nil {
		return err
	}
	*user = *userFromRecord(rec)
	return nil
}

func (r *AirtableRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	fields := map[string]any{
		fieldEmail:     update.Email,
		fieldFirstName: update.FirstName,
		fieldLastName:  update.LastName,
	}
	if update.Birthday != "" {
		fields[fieldBirthday] = update.Birthday
	}
	if a := update.Address; a != nil {
		fields[fieldAddressLine1] = a.Line1
		fields[fieldAddressLine2] = a.Line2
		fields[fieldCity] = a.City
		fields[fieldState] = a.State
		fields[fieldPostalCode] = a.PostalCode
		fields[fieldCountry] = a.Country
	}
	_, err := r.client.Update(ctx, r.table, id, fields)
	return notFound(err)
}

func (r *AirtableRepository) MarkSessionsInvalidated(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.Update(ctx, r.table, id, map[string]any{
		fieldSessionsInvalidatedAt: airtable.FormatTime(at),
	})
	return notFound(err)
}

func userFromRecord(rec *airtable.Record) *models.User {
	user := &models.User{
		ID:        rec.ID,
		SlackID:   rec.String(fieldSlackID),
		Name:      rec.String(fieldName),
		Email:     rec.String(fieldEmail),
		FirstName: rec.String(fieldFirstName),
		LastName:  rec.String(fieldLastName),
		Birthday:  rec.String(fieldBirthday),
		Address: types.Address{
			Line1:      rec.String(fieldAddressLine1),
			Line2:      rec.String(fieldAddressLine2),
			City:       rec.String(fieldCity),
			State:      rec.String(fieldState),
			PostalCode: rec.String(fieldPostalCode),
			Country:    rec.String(fieldCountry),
		},
		SpentUSD:              decimal.NewFromFloat(rec.Float(fieldSpentUSD)),
		SessionsInvalidatedAt: rec.Time(fieldSessionsInvalidatedAt),
	}
	if created := airtable.ParseTime(rec.CreatedTime); created != nil {
		user.CreatedAt = *created
	}
	return user
}

func notFound(err error) error {
	if airtable.IsNotFound(err) {
		return db.ErrNotFound
	}
	return err
}
