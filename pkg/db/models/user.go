package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jetfund/jetfund-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the participant identity, created lazily on first Slack sign-in.
type User struct {
	ID                    string          `gorm:"column:id;type:text;primaryKey"`
	SlackID               string          `gorm:"column:slack_id;not null;uniqueIndex"`
	Name                  string          `gorm:"column:name"`
	Email                 string          `gorm:"column:email"`
	FirstName             string          `gorm:"column:first_name"`
	LastName              string          `gorm:"column:last_name"`
	Birthday              string          `gorm:"column:birthday"`
	Address               types.Address   `gorm:"embedded;embeddedPrefix:address_"`
	SpentUSD              decimal.Decimal `gorm:"column:spent_usd;type:numeric(12,2);not null;default:0"`
	SessionsInvalidatedAt *time.Time      `gorm:"column:sessions_invalidated_at"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasAddress reports whether any address line is on file.
func (u User) HasAddress() bool {
	a := u.Address
	return strings.TrimSpace(a.Line1+a.City+a.State+a.PostalCode+a.Country) != ""
}

// ProfileMissing lists what still blocks project submission.
func (u User) ProfileMissing() []string {
	var missing []string
	if strings.TrimSpace(u.FirstName) == "" {
		missing = append(missing, "firstName")
	}
	if strings.TrimSpace(u.LastName) == "" {
		missing = append(missing, "lastName")
	}
	if strings.TrimSpace(u.Birthday) == "" {
		missing = append(missing, "birthday")
	}
	return append(missing, u.Address.Missing()...)
}

// InvalidatedSince reports whether the user revoked all sessions after issuedAt.
// iat carries whole seconds, so any stamp later within that second revokes it.
func (u User) InvalidatedSince(issuedAt time.Time) bool {
	if u.SessionsInvalidatedAt == nil {
		return false
	}
	return u.SessionsInvalidatedAt.After(issuedAt.Truncate(time.Second))
}
