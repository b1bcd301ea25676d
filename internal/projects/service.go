package projects

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/internal/hackatime"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/security"
)

const (
	MsgMissingName        = "Missing name."
	MsgMissingFields      = "Missing required fields."
	MsgProjectNotFound    = "Project not found."
	MsgUserNotFound       = "User not found."
	MsgNotAuthorized      = "Not authorized."
	MsgOnlyActiveEdit     = "Only active projects can be edited."
	MsgOnlyActiveDelete   = "Only active projects can be deleted."
	MsgAlreadySubmitted   = "Project is already submitted."
	MsgSessionInFlight    = "Finish and submit your current session before submitting the project."
	MsgProfileIncomplete  = "Complete your profile and address in account settings before submitting a project."
	MsgReopenDisabled     = "Rejected projects cannot be reopened."
	MsgOnlyRejectedReopen = "Only rejected projects can be reopened."
	MsgHasManualSessions  = "This project already has logged sessions and cannot be linked to Hackatime."
)

// Service enforces the project lifecycle rules.
type Service interface {
	Create(ctx context.Context, userID string, req CreateRequest) (*ProjectDTO, error)
	List(ctx context.Context, userID string) ([]ProjectDTO, error)
	Get(ctx context.Context, userID, projectID string) (*ProjectDTO, error)
	Edit(ctx context.Context, userID, projectID string, req EditRequest) (*ProjectDTO, error)
	Delete(ctx context.Context, userID, projectID string) error
	Submit(ctx context.Context, userID, projectID string, req SubmitRequest) (*ProjectDTO, error)
	Reopen(ctx context.Context, userID, projectID string) (*ProjectDTO, error)
}

// sessionGate is the slice of the sessions store project submission needs.
type sessionGate interface {
	FindUnfinished(ctx context.Context, userID, projectID string) (*models.Session, error)
	SubmitFinished(ctx context.Context, projectID string) (int, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Session, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type hoursSource interface {
	ProjectHours(ctx context.Context, slackID, projectName string) (float64, error)
}

// ServiceParams groups dependencies for the projects service.
type ServiceParams struct {
	Repo      Repository
	Sessions  sessionGate
	Users     userFinder
	Hackatime hoursSource
	Features  config.FeatureFlagsConfig
	Events    events.Publisher
	Now       func() time.Time
}

type service struct {
	repo        Repository
	sessions    sessionGate
	users       userFinder
	hackatime   hoursSource
	allowReopen bool
	events      events.Publisher
	now         func() time.Time
}

// NewService builds a projects service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "projects repo is required")
	case params.Sessions == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessions repo is required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	case params.Hackatime == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hackatime client is required")
	}
	svc := &service{
		repo:        params.Repo,
		sessions:    params.Sessions,
		users:       params.Users,
		hackatime:   params.Hackatime,
		allowReopen: params.Features.ProjectAllowReopen,
		events:      params.Events,
		now:         params.Now,
	}
	if svc.events == nil {
		svc.events = events.Nop{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, userID string, req CreateRequest) (*ProjectDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.Validation(MsgMissingName)
	}

	project := &models.Project{
		UserID:               userID,
		Name:                 name,
		Status:               enums.ProjectStatusActive,
		HackatimeProjectName: req.HackatimeProjectName,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, pkgerrors.Dependency(err, "create project")
	}

	s.publish(ctx, events.TypeProjectCreated, userID, project)
	return FromModel(project), nil
}

func (s *service) List(ctx context.Context, userID string) ([]ProjectDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "list projects")
	}
	return FromModels(rows), nil
}

func (s *service) Get(ctx context.Context, userID, projectID string) (*ProjectDTO, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return FromModel(project), nil
}

// Edit renames the project or changes its Hackatime link while it is active.
func (s *service) Edit(ctx context.Context, userID, projectID string, req EditRequest) (*ProjectDTO, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != enums.ProjectStatusActive {
		return nil, pkgerrors.Validation(MsgOnlyActiveEdit)
	}

	var changes Changes
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.Validation(MsgMissingName)
		}
		changes.Name = &name
	}
	if req.HackatimeProjectName != nil {
		link := strings.TrimSpace(*req.HackatimeProjectName)
		if link != "" && !project.TracksHackatime() {
			if err := s.ensureNoManualSessions(ctx, project.ID); err != nil {
				return nil, err
			}
		}
		changes.HackatimeProjectName = &link
	}
	if changes == (Changes{}) {
		return FromModel(project), nil
	}

	if err := s.repo.Update(ctx, project.ID, changes); err != nil {
		return nil, pkgerrors.Dependency(err, "update project")
	}
	changes.apply(project)
	return FromModel(project), nil
}

// ensureNoManualSessions keeps a project on one time source: manual sessions
// or Hackatime.
func (s *service) ensureNoManualSessions(ctx context.Context, projectID string) error {
	logged, err := s.sessions.ListByProject(ctx, projectID)
	if err != nil {
		return pkgerrors.Dependency(err, "list project sessions")
	}
	if len(logged) > 0 {
		return pkgerrors.Validation(MsgHasManualSessions)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, projectID string) error {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if project.Status != enums.ProjectStatusActive {
		return pkgerrors.Validation(MsgOnlyActiveDelete)
	}
	if err := s.repo.Delete(ctx, project.ID); err != nil {
		return pkgerrors.Dependency(err, "delete project")
	}
	return nil
}

// Submit sends the project to review. The order of the checks decides which
// message the caller sees first.
func (s *service) Submit(ctx context.Context, userID, projectID string, req SubmitRequest) (*ProjectDTO, error) {
	playable := strings.TrimSpace(req.PlayableURL)
	code := strings.TrimSpace(req.CodeURL)
	screenshot := strings.TrimSpace(req.ScreenshotURL)
	description := security.PlainText(req.Description)
	if playable == "" || code == "" || screenshot == "" || description == "" {
		return nil, pkgerrors.Validation(MsgMissingFields)
	}

	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Status.CanTransitionTo(enums.ProjectStatusSubmitted, s.allowReopen) {
		return nil, pkgerrors.Validation(MsgAlreadySubmitted)
	}

	blocking, err := s.sessions.FindUnfinished(ctx, userID, project.ID)
	switch {
	case err == nil:
		return nil, pkgerrors.Validation(MsgSessionInFlight).
			WithDetails(map[string]any{"sessionId": blocking.ID})
	case !errors.Is(err, db.ErrNotFound):
		return nil, pkgerrors.Dependency(err, "load unfinished session")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgUserNotFound)
		}
		return nil, pkgerrors.Dependency(err, "load user")
	}
	if missing := user.ProfileMissing(); len(missing) > 0 {
		return nil, pkgerrors.Validation(MsgProfileIncomplete).
			WithDetails(map[string]any{"missing": missing})
	}

	now := s.now().UTC()
	submitted := enums.ProjectStatusSubmitted
	cleared := ""
	changes := Changes{
		Status:          &submitted,
		PlayableURL:     &playable,
		CodeURL:         &code,
		ScreenshotURL:   &screenshot,
		Description:     &description,
		RejectionReason: &cleared,
		SubmittedAt:     &now,
	}

	if project.TracksHackatime() {
		hours, err := s.hackatime.ProjectHours(ctx, user.SlackID, project.HackatimeProjectName)
		switch {
		case errors.Is(err, hackatime.ErrProjectNotFound):
			hours = 0
		case err != nil:
			return nil, pkgerrors.Dependency(err, "snapshot hackatime hours")
		}
		changes.HackatimeHours = &hours
	}

	if err := s.repo.Update(ctx, project.ID, changes); err != nil {
		return nil, pkgerrors.Dependency(err, "submit project")
	}
	if _, err := s.sessions.SubmitFinished(ctx, project.ID); err != nil {
		return nil, pkgerrors.Dependency(err, "submit finished sessions")
	}

	updated, err := s.repo.FindByID(ctx, project.ID)
	if err != nil {
		// the submission itself went through, fall back to the local view
		changes.apply(project)
		updated = project
	}

	s.publishActor(ctx, events.TypeProjectSubmitted, events.Actor{UserID: userID, SlackID: user.SlackID}, updated)
	return FromModel(updated), nil
}

// Reopen returns a rejected project to active when reopening is enabled.
func (s *service) Reopen(ctx context.Context, userID, projectID string) (*ProjectDTO, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != enums.ProjectStatusRejected {
		return nil, pkgerrors.Validation(MsgOnlyRejectedReopen)
	}
	if !project.Status.CanTransitionTo(enums.ProjectStatusActive, s.allowReopen) {
		return nil, pkgerrors.Validation(MsgReopenDisabled)
	}

	active := enums.ProjectStatusActive
	changes := Changes{Status: &active}
	if err := s.repo.Update(ctx, project.ID, changes); err != nil {
		return nil, pkgerrors.Dependency(err, "reopen project")
	}
	changes.apply(project)
	return FromModel(project), nil
}

func (s *service) owned(ctx context.Context, userID, projectID string) (*models.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.Validation("Missing project.")
	}
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgProjectNotFound)
		}
		return nil, pkgerrors.Dependency(err, "load project")
	}
	if !project.OwnedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, MsgNotAuthorized)
	}
	return project, nil
}

func (s *service) publish(ctx context.Context, typ events.Type, userID string, project *models.Project) {
	s.publishActor(ctx, typ, events.Actor{UserID: userID}, project)
}

func (s *service) publishActor(ctx context.Context, typ events.Type, actor events.Actor, project *models.Project) {
	s.events.Publish(ctx, events.Event{
		Type:      typ,
		Actor:     actor,
		SubjectID: project.ID,
		Data: map[string]any{
			"name":           project.Name,
			"status":         project.Status,
			"hackatimeHours": project.HackatimeHours,
			"hoursSpent":     project.Rollup.HoursSpent,
		},
	})
}
