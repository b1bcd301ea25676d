package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/auth"
	"github.com/jetfund/jetfund-backend/pkg/auth/session"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
)

var authCfg = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func mintTestToken(t *testing.T, issuedAt time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(authCfg, issuedAt, auth.AccessTokenPayload{
		UserID:  "user-1",
		SlackID: "U123",
		JTI:     session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func serveAuth(t *testing.T, verifier stubSessionVerifier, users stubUsers, token string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var userID, slackID string
	handler := Auth(authCfg, verifier, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		slackID = SlackIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp, userID, slackID
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp, _, _ := serveAuth(t, stubSessionVerifier{ok: true}, nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	resp, _, _ := serveAuth(t, stubSessionVerifier{ok: true}, nil, "invalid")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthAllowsValidToken(t *testing.T) {
	users := stubUsers{"user-1": {ID: "user-1", SlackID: "U123"}}
	resp, userID, slackID := serveAuth(t, stubSessionVerifier{ok: true}, users, mintTestToken(t, time.Now()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "user-1", userID)
	require.Equal(t, "U123", slackID)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	resp, _, _ := serveAuth(t, stubSessionVerifier{ok: false}, nil, mintTestToken(t, time.Now()))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, _, _ = serveAuth(t, stubSessionVerifier{err: errors.New("redis down")}, nil, mintTestToken(t, time.Now()))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestAuthRejectsMissingUser(t *testing.T) {
	resp, _, _ := serveAuth(t, stubSessionVerifier{ok: true}, stubUsers{}, mintTestToken(t, time.Now()))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidatedSessions(t *testing.T) {
	issued := time.Now().Add(-10 * time.Minute)
	invalidated := issued.Add(5 * time.Minute)
	users := stubUsers{"user-1": {ID: "user-1", SlackID: "U123", SessionsInvalidatedAt: &invalidated}}

	resp, _, _ := serveAuth(t, stubSessionVerifier{ok: true}, users, mintTestToken(t, issued))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), msgSessionInvalidated)

	// tokens minted after the invalidation keep working
	resp, _, _ = serveAuth(t, stubSessionVerifier{ok: true}, users, mintTestToken(t, time.Now()))
	require.Equal(t, http.StatusOK, resp.Code)
}
