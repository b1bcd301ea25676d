package projects

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jetfund/jetfund-backend/pkg/airtable"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	"github.com/stretchr/testify/require"
)

func newAirtableRepo(t *testing.T, handler http.HandlerFunc) *AirtableRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := airtable.NewClient("key", "appTest",
		airtable.WithBaseURL(srv.URL), airtable.WithHTTPClient(srv.Client()), airtable.WithRequestsPerSecond(1000))
	require.NoError(t, err)
	return NewAirtableRepository(client, "Projects")
}

func TestAirtableReadsRollupsAndLegacyStatus(t *testing.T) {
	repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/appTest/Projects/recP1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"recP1","createdTime":"2025-03-01T10:00:00.000Z","fields":{
			"name":"Robo","user":["recU1","recU9"],"status":"finished",
			"approvedHours":10,"pendingHours":4.004,"hoursSpent":14,"hackatimeHours":0}}`)
	})

	project, err := repo.FindByID(context.Background(), "recP1")
	require.NoError(t, err)
	require.Equal(t, "recU1", project.UserID)
	require.Equal(t, enums.ProjectStatusSubmitted, project.Status)
	require.Equal(t, 10.0, project.Rollup.ApprovedHours)
	require.Equal(t, 4.0, project.Rollup.PendingHours)
	require.Equal(t, []string{"recU1", "recU9"}, project.OwnerIDs)
	require.True(t, project.OwnedBy("recU1"))
	require.True(t, project.OwnedBy("recU9"))
	require.False(t, project.OwnedBy("recU2"))
}

func TestAirtableListByUserFormula(t *testing.T) {
	repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "{userId} = 'recU1'", r.URL.Query().Get("filterByFormula"))
		_, _ = io.WriteString(w, `{"records":[{"id":"recP1","fields":{"name":"Robo","userId":["recU1"]}}]}`)
	})

	rows, err := repo.ListByUser(context.Background(), "recU1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "recU1", rows[0].UserID)
	require.Equal(t, enums.ProjectStatusActive, rows[0].Status)
}

func TestAirtableCreateAndUpdate(t *testing.T) {
	var got map[string]any
	repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body.Fields
		_, _ = io.WriteString(w, `{"id":"recP1","fields":{"name":"Robo","user":["recU1"],"status":"active"}}`)
	})

	project := &models.Project{UserID: "recU1", Name: "Robo", Status: enums.ProjectStatusActive}
	require.NoError(t, repo.Create(context.Background(), project))
	require.Equal(t, "recP1", project.ID)
	require.Equal(t, []any{"recU1"}, got["user"])
	require.NotContains(t, got, "hackatimeProjectName")

	status := enums.ProjectStatusSubmitted
	hours := 2.5
	require.NoError(t, repo.Update(context.Background(), "recP1", Changes{Status: &status, HackatimeHours: &hours}))
	require.Equal(t, "submitted", got["status"])
	require.Equal(t, 2.5, got["hackatimeHours"])
	require.Len(t, got, 2)
}

func TestAirtableDeleteMissing(t *testing.T) {
	repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"NOT_FOUND"}`)
	})
	err := repo.Delete(context.Background(), "recGone")
	require.True(t, errors.Is(err, db.ErrNotFound))
}
