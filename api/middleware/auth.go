package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/jetfund/jetfund-backend/api/responses"
	"github.com/jetfund/jetfund-backend/api/validators"
	pkgAuth "github.com/jetfund/jetfund-backend/pkg/auth"
	"github.com/jetfund/jetfund-backend/pkg/auth/session"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

const msgSessionInvalidated = "Session has been invalidated."

type userLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Auth validates a bearer token, confirms the refresh session is still live
// and rejects tokens issued before the user invalidated their sessions.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, users userLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" || claims.UserID() == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			if users != nil {
				user, err := users.FindByID(r.Context(), claims.UserID())
				if errors.Is(err, db.ErrNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found"))
					return
				}
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Dependency(err, "load user"))
					return
				}
				if user.InvalidatedSince(claims.IssuedAtTime()) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionInvalidated))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID())
			ctx = WithSlackID(ctx, claims.SlackID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
