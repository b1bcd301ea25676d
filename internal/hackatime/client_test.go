package hackatime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

const statsBody = `{
  "data": {
    "username": "ada",
    "user_id": "42",
    "total_seconds": 9000,
    "projects": [
      {"name": "jet-sim", "total_seconds": 5400, "text": "1 hr 30 mins", "hours": 1, "minutes": 30},
      {"name": "other", "total_seconds": 3600}
    ]
  },
  "trust_factor": {"trust_level": "blue", "trust_value": 0}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.HackatimeConfig{BaseURL: srv.URL + "/api/v1/"}, WithHTTPClient(srv.Client()))
}

func TestUserStatsDecodesProjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/U123/stats", r.URL.Path)
		require.Equal(t, "projects", r.URL.Query().Get("features"))
		_, _ = io.WriteString(w, statsBody)
	})

	stats, err := client.UserStats(context.Background(), "U123")
	require.NoError(t, err)
	require.Equal(t, "ada", stats.Data.Username)
	require.Len(t, stats.Data.Projects, 2)
	require.Equal(t, "blue", stats.TrustFactor.TrustLevel)

	project := FindProject(&stats.Data, "jet-sim")
	require.NotNil(t, project)
	require.Equal(t, 5400.0, project.TotalSeconds)
	require.Nil(t, FindProject(&stats.Data, "missing"))
}

func TestProjectHours(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, statsBody)
	})

	hours, err := client.ProjectHours(context.Background(), "U123", "jet-sim")
	require.NoError(t, err)
	require.Equal(t, 1.5, hours)

	_, err = client.ProjectHours(context.Background(), "U123", "nope")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUserStatsUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	})

	_, err := client.UserStats(context.Background(), "U123")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode())
}

type userMap map[string]*models.User

func (m userMap) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func TestServiceRequiresSlackID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, statsBody)
	})
	svc, err := NewService(client, userMap{
		"u1": {ID: "u1", SlackID: "U123"},
		"u2": {ID: "u2"},
	})
	require.NoError(t, err)

	stats, err := svc.StatsForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "42", stats.Data.UserID)

	_, err = svc.StatsForUser(context.Background(), "u2")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, msgMissingSlackID, pkgerrors.As(err).Message())
}
