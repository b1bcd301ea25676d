package users

import (
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/types"
)

// ProfileDTO is the sanitized user view. Address lines never leave the server.
type ProfileDTO struct {
	ID              string  `json:"id"`
	SlackID         string  `json:"slackId"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Birthday        string  `json:"birthday,omitempty"`
	HasAddress      bool    `json:"hasAddress"`
	ProfileComplete bool    `json:"profileComplete"`
	SpentUSD        float64 `json:"spentUsd"`
}

// Identity is what the identity provider hands us after sign-in.
type Identity struct {
	SlackID string
	Name    string
	Email   string
}

// PersonalInfo is the required half of a profile update.
type PersonalInfo struct {
	Email     string `json:"email" validate:"omitempty,email,max=320"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Birthday  string `json:"birthday,omitempty"`
}

// UpdateProfileRequest is the PUT /user/profile body. The address may arrive
// under either key; older clients send addressInfo.
type UpdateProfileRequest struct {
	PersonalInfo *PersonalInfo  `json:"personalInfo"`
	Address      *types.Address `json:"address,omitempty"`
	AddressInfo  *types.Address `json:"addressInfo,omitempty"`
}

func (r UpdateProfileRequest) address() *types.Address {
	if r.Address != nil {
		return r.Address
	}
	return r.AddressInfo
}

// FromModel strips write-only fields.
func FromModel(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}
	return &ProfileDTO{
		ID:              u.ID,
		SlackID:         u.SlackID,
		Name:            u.Name,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Birthday:        u.Birthday,
		HasAddress:      u.HasAddress(),
		ProfileComplete: len(u.ProfileMissing()) == 0,
		SpentUSD:        u.SpentUSD.InexactFloat64(),
	}
}
