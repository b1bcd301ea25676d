package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/internal/users"
	pkgAuth "github.com/jetfund/jetfund-backend/pkg/auth"
	"github.com/jetfund/jetfund-backend/pkg/auth/session"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/security"
)

const (
	stateBytes        = 24
	defaultStateTTL   = 10 * time.Minute
	msgInvalidState   = "Sign-in link expired. Please try again."
	msgInvalidToken   = "invalid token"
	msgInvalidated    = "Session has been invalidated."
	msgInvalidRefresh = "invalid refresh token"
)

// Service runs sign-in, token refresh and logout.
type Service interface {
	BeginLogin(ctx context.Context) (string, error)
	CompleteLogin(ctx context.Context, code, state string) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type identityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (users.Identity, error)
}

type stateStore interface {
	StoreOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

type userProvisioner interface {
	EnsureUser(ctx context.Context, identity users.Identity) (*models.User, bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID, userID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, userID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Provider       identityProvider
	States         stateStore
	Users          userProvisioner
	UserRepo       userFinder
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	StateTTL       time.Duration
	Events         events.Publisher
	Now            func() time.Time
}

type service struct {
	provider identityProvider
	states   stateStore
	users    userProvisioner
	userRepo userFinder
	session  sessionManager
	jwtCfg   config.JWTConfig
	stateTTL time.Duration
	events   events.Publisher
	now      func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Provider == nil:
		return nil, fmt.Errorf("identity provider is required")
	case params.States == nil:
		return nil, fmt.Errorf("state store is required")
	case params.Users == nil:
		return nil, fmt.Errorf("users service is required")
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.SessionManager == nil:
		return nil, fmt.Errorf("session manager is required")
	}
	svc := &service{
		provider: params.Provider,
		states:   params.States,
		users:    params.Users,
		userRepo: params.UserRepo,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		stateTTL: params.StateTTL,
		events:   params.Events,
		now:      params.Now,
	}
	if svc.stateTTL <= 0 {
		svc.stateTTL = defaultStateTTL
	}
	if svc.events == nil {
		svc.events = events.Nop{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// BeginLogin stores a fresh state value and returns the Slack authorize URL.
func (s *service) BeginLogin(ctx context.Context) (string, error) {
	state, err := security.RandomToken(stateBytes)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate oauth state")
	}
	if err := s.states.StoreOAuthState(ctx, state, s.stateTTL); err != nil {
		return "", pkgerrors.Dependency(err, "store oauth state")
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *service) CompleteLogin(ctx context.Context, code, state string) (*LoginResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.Validation("Missing authorization code.")
	}
	ok, err := s.states.ConsumeOAuthState(ctx, strings.TrimSpace(state))
	if err != nil {
		return nil, pkgerrors.Dependency(err, "consume oauth state")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidState)
	}

	identity, err := s.provider.Identify(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "slack sign-in failed")
	}

	user, _, err := s.users.EnsureUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:  user.ID,
		SlackID: user.SlackID,
		JTI:     accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "store refresh token")
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeSignIn,
		Actor:     events.Actor{UserID: user.ID, SlackID: user.SlackID},
		SubjectID: user.ID,
	})

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// Refresh rotates the refresh token unless the user revoked their sessions
// after the access token was issued.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgInvalidToken)
	}
	if claims.ID == "" || claims.UserID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidToken)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidToken)
		}
		return nil, pkgerrors.Dependency(err, "load user")
	}
	if user.InvalidatedSince(claims.IssuedAtTime()) {
		_ = s.session.Revoke(ctx, claims.ID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidated)
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, user.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidRefresh)
		}
		return nil, pkgerrors.Dependency(err, "rotate session")
	}

	minted, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:  user.ID,
		SlackID: user.SlackID,
		JTI:     newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: minted, RefreshToken: newRefreshToken}, nil
}

// Logout revokes the refresh session behind the access token. Expired
// tokens are accepted so a stale client can still sign out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgInvalidToken)
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Dependency(err, "revoke session")
	}
	return nil
}
