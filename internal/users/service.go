package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

const birthdayLayout = "2006-01-02"

const (
	msgProfileRequired  = "Personal information is required."
	msgPersonalRequired = "Email, first name, and last name are required."
	msgBirthdayFormat   = "Birthday must use the YYYY-MM-DD format."
	msgAddressRequired  = "Address line 1, city, state, postal code, and country are required."
	msgMissingSlackID   = "Missing Slack ID."
)

// Service exposes user provisioning and profile rules.
type Service interface {
	EnsureUser(ctx context.Context, identity Identity) (*models.User, bool, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, id string) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*ProfileDTO, error)
	InvalidateSessions(ctx context.Context, id string) (time.Time, error)
}

// ServiceParams groups dependencies for the users service.
type ServiceParams struct {
	Repo   Repository
	Events events.Publisher
	Now    func() time.Time
}

type service struct {
	repo   Repository
	events events.Publisher
	now    func() time.Time
}

// NewService builds a users service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	pub := params.Events
	if pub == nil {
		pub = events.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, events: pub, now: now}, nil
}

// EnsureUser finds the user by Slack id, creating the record on first sign-in.
// The bool reports whether a record was created.
func (s *service) EnsureUser(ctx context.Context, identity Identity) (*models.User, bool, error) {
	slackID := strings.TrimSpace(identity.SlackID)
	if slackID == "" {
		return nil, false, pkgerrors.Validation(msgMissingSlackID)
	}

	user, err := s.repo.FindBySlackID(ctx, slackID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, pkgerrors.Dependency(err, "load user")
	}

	user = &models.User{
		SlackID: slackID,
		Name:    strings.TrimSpace(identity.Name),
		Email:   strings.TrimSpace(identity.Email),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost a race with a concurrent first sign-in
			existing, findErr := s.repo.FindBySlackID(ctx, slackID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, pkgerrors.Dependency(err, "create user")
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeUserCreated,
		Actor:     events.Actor{UserID: user.ID, SlackID: user.SlackID},
		SubjectID: user.ID,
	})
	return user, true, nil
}

// GetUser loads the full record. Callers must not serialize it directly.
func (s *service) GetUser(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Profile not found.")
		}
		return nil, pkgerrors.Dependency(err, "load user")
	}
	return user, nil
}

func (s *service) GetProfile(ctx context.Context, id string) (*ProfileDTO, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateProfile validates and writes personal info plus the optional address.
func (s *service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*ProfileDTO, error) {
	update, err := buildProfileUpdate(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, id, update); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Profile not found.")
		}
		return nil, pkgerrors.Dependency(err, "update profile")
	}
	return s.GetProfile(ctx, id)
}

// InvalidateSessions stamps now as the cut-off; tokens issued earlier stop working.
func (s *service) InvalidateSessions(ctx context.Context, id string) (time.Time, error) {
	at := s.now().UTC()
	if err := s.repo.MarkSessionsInvalidated(ctx, id, at); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Profile not found.")
		}
		return time.Time{}, pkgerrors.Dependency(err, "invalidate sessions")
	}
	return at, nil
}

func buildProfileUpdate(req UpdateProfileRequest) (ProfileUpdate, error) {
	if req.PersonalInfo == nil {
		return ProfileUpdate{}, pkgerrors.Validation(msgProfileRequired)
	}
	info := req.PersonalInfo
	update := ProfileUpdate{
		Email:     strings.TrimSpace(info.Email),
		FirstName: strings.TrimSpace(info.FirstName),
		LastName:  strings.TrimSpace(info.LastName),
		Birthday:  strings.TrimSpace(info.Birthday),
	}
	if update.Email == "" || update.FirstName == "" || update.LastName == "" {
		return ProfileUpdate{}, pkgerrors.Validation(msgPersonalRequired)
	}
	if update.Birthday != "" {
		if _, err := time.Parse(birthdayLayout, update.Birthday); err != nil {
			return ProfileUpdate{}, pkgerrors.Validation(msgBirthdayFormat)
		}
	}
	if addr := req.address(); addr != nil {
		trimmed := addr.Trimmed()
		if missing := trimmed.Missing(); len(missing) > 0 {
			return ProfileUpdate{}, pkgerrors.Validation(msgAddressRequired).
				WithDetails(map[string]any{"missing": missing})
		}
		update.Address = &trimmed
	}
	return update, nil
}
