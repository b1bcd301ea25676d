package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/redis"
)

const (
	maxSessionLength = 24 * time.Hour
	minSessionLength = time.Minute
	startGuardScope  = "session_start"
)

const (
	MsgMissingProject     = "Missing project."
	MsgMissingSession     = "Missing session."
	MsgMissingFields      = "Missing required fields."
	MsgProjectNotFound    = "Project not found."
	MsgSessionNotFound    = "Session not found."
	MsgNotAuthorized      = "Not authorized."
	MsgProjectNotActive   = "Project is not active."
	MsgHackatimeTracked   = "This project is tracked by Hackatime. Manual sessions are disabled."
	MsgStartInProgress    = "A session is already being started."
	MsgUnfinishedSession  = "You have an unfinished session."
	MsgNotRunning         = "Session is not running."
	MsgTooLong            = "Session is longer than 24 hours and cannot be finished."
	MsgStartInFuture      = "Session start time is in the future."
	MsgTooShort           = "Session must be at least one minute long."
	MsgAlreadyReviewed    = "Session is already reviewed."
	MsgAlreadySubmitted   = "Session is already submitted for review."
	MsgNotFinished        = "Session must be finished before submitting details."
	MsgProofAlreadyExists = "Session proof has already been submitted."
	MsgOnlyRejected       = "Can only update rejected sessions."
)

// Service enforces the session lifecycle rules.
type Service interface {
	Start(ctx context.Context, userID, projectID string) (*SessionDTO, error)
	Finish(ctx context.Context, userID, sessionID string) (*SessionDTO, error)
	SubmitProof(ctx context.Context, userID string, req ProofRequest) (*SessionDTO, error)
	ResubmitRejected(ctx context.Context, userID, sessionID string, req ProofRequest) (*SessionDTO, error)
	Current(ctx context.Context, userID string) (*SessionDTO, error)
	ListForProject(ctx context.Context, userID, projectID string) ([]SessionDTO, error)
	TotalHours(ctx context.Context, userID, projectID string) (float64, error)
}

type projectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type startGuard interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (*redis.Lock, bool, error)
	ReleaseLock(ctx context.Context, lock *redis.Lock) error
}

// ServiceParams groups dependencies for the sessions service. Guard is only
// consulted when Features.SessionStartGuard is on.
type ServiceParams struct {
	Repo     Repository
	Projects projectFinder
	Guard    startGuard
	Features config.FeatureFlagsConfig
	Events   events.Publisher
	Now      func() time.Time
}

type service struct {
	repo     Repository
	projects projectFinder
	guard    startGuard
	guardTTL time.Duration
	events   events.Publisher
	now      func() time.Time
}

// NewService builds a sessions service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessions repo is required")
	}
	if params.Projects == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "projects repo is required")
	}
	svc := &service{
		repo:     params.Repo,
		projects: params.Projects,
		events:   params.Events,
		now:      params.Now,
	}
	if params.Features.SessionStartGuard {
		if params.Guard == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "start guard is required when enabled")
		}
		svc.guard = params.Guard
		svc.guardTTL = params.Features.SessionStartGuardTTL
		if svc.guardTTL <= 0 {
			svc.guardTTL = 10 * time.Second
		}
	}
	if svc.events == nil {
		svc.events = events.Nop{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Start opens a running session on an active, manually timed project.
func (s *service) Start(ctx context.Context, userID, projectID string) (*SessionDTO, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.Validation(MsgMissingProject)
	}

	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != enums.ProjectStatusActive {
		return nil, pkgerrors.Validation(MsgProjectNotActive)
	}
	if project.TracksHackatime() {
		return nil, pkgerrors.Validation(MsgHackatimeTracked)
	}

	if s.guard != nil {
		lock, acquired, err := s.guard.AcquireLock(ctx, startGuardScope, userID, s.guardTTL)
		if err != nil {
			return nil, pkgerrors.Dependency(err, "acquire session start guard")
		}
		if !acquired {
			return nil, pkgerrors.Validation(MsgStartInProgress)
		}
		defer func() { _ = s.guard.ReleaseLock(context.WithoutCancel(ctx), lock) }()
	}

	blocking, err := s.repo.FindUnfinished(ctx, userID, "")
	switch {
	case err == nil:
		return nil, pkgerrors.Validation(MsgUnfinishedSession).
			WithDetails(map[string]any{"session": FromModel(blocking)})
	case !errors.Is(err, db.ErrNotFound):
		return nil, pkgerrors.Dependency(err, "load unfinished session")
	}

	session := &models.Session{
		UserID:    userID,
		ProjectID: project.ID,
		StartTime: s.now().UTC(),
		Status:    enums.SessionStatusOngoing,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Dependency(err, "create session")
	}

	s.publish(ctx, events.TypeSessionStarted, userID, session)
	return FromModel(session), nil
}

// Finish stamps the end time after checking the duration bounds.
func (s *service) Finish(ctx context.Context, userID, sessionID string) (*SessionDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.Validation(MsgMissingSession)
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusOngoing {
		return nil, pkgerrors.Validation(MsgNotRunning)
	}

	now := s.now().UTC()
	if err := checkDuration(now.Sub(session.StartTime)); err != nil {
		return nil, err
	}

	finished := enums.SessionStatusFinished
	changes := Changes{EndTime: &now, Status: &finished}
	if err := s.repo.Update(ctx, session.ID, changes); err != nil {
		return nil, pkgerrors.Dependency(err, "finish session")
	}
	changes.apply(session)

	s.publish(ctx, events.TypeSessionFinished, userID, session)
	return FromModel(session), nil
}

func checkDuration(d time.Duration) error {
	switch {
	case d > maxSessionLength:
		return pkgerrors.Validation(MsgTooLong)
	case d < 0:
		return pkgerrors.Validation(MsgStartInFuture)
	case d < minSessionLength:
		return pkgerrors.Validation(MsgTooShort)
	}
	return nil
}

// SubmitProof attaches the commit link and screenshot. A rejected session is
// treated as a resubmission and goes back to finished.
func (s *service) SubmitProof(ctx context.Context, userID string, req ProofRequest) (*SessionDTO, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	commit := strings.TrimSpace(req.GitCommitURL)
	image := strings.TrimSpace(req.ImageURL)
	if sessionID == "" || commit == "" || image == "" {
		return nil, pkgerrors.Validation(MsgMissingFields)
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.attachProof(ctx, userID, session, commit, image)
}

// ResubmitRejected is the edit path for sessions staff rejected.
func (s *service) ResubmitRejected(ctx context.Context, userID, sessionID string, req ProofRequest) (*SessionDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.Validation(MsgMissingSession)
	}
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusRejected {
		return nil, pkgerrors.Validation(MsgOnlyRejected)
	}
	req.SessionID = sessionID
	return s.SubmitProof(ctx, userID, req)
}

func (s *service) attachProof(ctx context.Context, userID string, session *models.Session, commit, image string) (*SessionDTO, error) {
	switch session.Status {
	case enums.SessionStatusApproved:
		return nil, pkgerrors.Validation(MsgAlreadyReviewed)
	case enums.SessionStatusSubmitted:
		return nil, pkgerrors.Validation(MsgAlreadySubmitted)
	case enums.SessionStatusOngoing:
		return nil, pkgerrors.Validation(MsgNotFinished)
	case enums.SessionStatusFinished:
		if session.HasProof() {
			return nil, pkgerrors.Validation(MsgProofAlreadyExists)
		}
	}

	finished := enums.SessionStatusFinished
	if !session.Status.CanTransitionTo(finished) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session cannot accept proof").
			WithDetails(map[string]any{"status": session.Status})
	}

	changes := Changes{GitCommitURL: &commit, ImageURL: &image, Status: &finished}
	if session.Status == enums.SessionStatusRejected {
		cleared := ""
		changes.RejectionReason = &cleared
	}
	if err := s.repo.Update(ctx, session.ID, changes); err != nil {
		return nil, pkgerrors.Dependency(err, "submit session proof")
	}
	changes.apply(session)

	s.publish(ctx, events.TypeSessionSubmitted, userID, session)
	return FromModel(session), nil
}

// Current returns the user's unfinished session, or nil when there is none.
func (s *service) Current(ctx context.Context, userID string) (*SessionDTO, error) {
	session, err := s.repo.FindUnfinished(ctx, userID, "")
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Dependency(err, "load current session")
	}
	return FromModel(session), nil
}

func (s *service) ListForProject(ctx context.Context, userID, projectID string) ([]SessionDTO, error) {
	rows, err := s.projectSessions(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

// TotalHours sums the hours of the project's stopped sessions.
func (s *service) TotalHours(ctx context.Context, userID, projectID string) (float64, error) {
	rows, err := s.projectSessions(ctx, userID, projectID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, row := range rows {
		if row.EndTime != nil {
			total += row.HoursSpent
		}
	}
	return models.RoundHours(total), nil
}

func (s *service) projectSessions(ctx context.Context, userID, projectID string) ([]models.Session, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.Validation(MsgMissingProject)
	}
	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "list project sessions")
	}
	return rows, nil
}

func (s *service) ownedProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
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

func (s *service) ownedSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgSessionNotFound)
		}
		return nil, pkgerrors.Dependency(err, "load session")
	}
	if session.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, MsgNotAuthorized)
	}
	return session, nil
}

func (s *service) publish(ctx context.Context, typ events.Type, userID string, session *models.Session) {
	s.events.Publish(ctx, events.Event{
		Type:      typ,
		Actor:     events.Actor{UserID: userID},
		SubjectID: session.ID,
		Data: map[string]any{
			"projectId":  session.ProjectID,
			"status":     session.Status,
			"hoursSpent": session.HoursSpent,
		},
	})
}
