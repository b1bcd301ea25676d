package projects_test

import (
	"context"
	"testing"
	"time"

	"github.com/jetfund/jetfund-backend/internal/projects"
	"github.com/jetfund/jetfund-backend/internal/sessions"
	"github.com/jetfund/jetfund-backend/internal/users"
	"github.com/jetfund/jetfund-backend/pkg/db/dbtest"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	"github.com/jetfund/jetfund-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

type noHackatime struct{}

func (noHackatime) ProjectHours(context.Context, string, string) (float64, error) { return 0, nil }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestHappyPathOverSQLite(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	clk := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	usersRepo := users.NewGormRepository(conn)
	projectsRepo := projects.NewGormRepository(conn)
	sessionsRepo := sessions.NewGormRepository(conn)

	user := &models.User{
		SlackID:   "U1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Birthday:  "2008-01-02",
		Address:   types.Address{Line1: "1 Main", City: "Burlington", State: "VT", PostalCode: "05401", Country: "US"},
	}
	require.NoError(t, usersRepo.Create(ctx, user))

	projectSvc, err := projects.NewService(projects.ServiceParams{
		Repo:      projectsRepo,
		Sessions:  sessionsRepo,
		Users:     usersRepo,
		Hackatime: noHackatime{},
		Now:       clk.Now,
	})
	require.NoError(t, err)
	sessionSvc, err := sessions.NewService(sessions.ServiceParams{
		Repo:     sessionsRepo,
		Projects: projectsRepo,
		Now:      clk.Now,
	})
	require.NoError(t, err)

	project, err := projectSvc.Create(ctx, user.ID, projects.CreateRequest{Name: "Robo"})
	require.NoError(t, err)
	require.Equal(t, enums.ProjectStatusActive, project.Status)

	started, err := sessionSvc.Start(ctx, user.ID, project.ID)
	require.NoError(t, err)

	clk.now = clk.now.Add(2 * time.Hour)
	finished, err := sessionSvc.Finish(ctx, user.ID, started.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, models.Session{StartTime: finished.StartTime, EndTime: finished.EndTime}.Hours())

	_, err = projectSvc.Submit(ctx, user.ID, project.ID, projects.SubmitRequest{
		PlayableURL:   "https://robo.example.com",
		CodeURL:       "https://github.com/ada/robo",
		ScreenshotURL: "https://cdn.example.com/robo.png",
		Description:   "Robot",
	})
	require.Error(t, err, "proof is still missing")

	_, err = sessionSvc.SubmitProof(ctx, user.ID, sessions.ProofRequest{
		SessionID:    started.ID,
		GitCommitURL: "https://github.com/ada/robo/commit/abc",
		ImageURL:     "https://cdn.example.com/s1.png",
	})
	require.NoError(t, err)

	submitted, err := projectSvc.Submit(ctx, user.ID, project.ID, projects.SubmitRequest{
		PlayableURL:   "https://robo.example.com",
		CodeURL:       "https://github.com/ada/robo",
		ScreenshotURL: "https://cdn.example.com/robo.png",
		Description:   "Robot",
	})
	require.NoError(t, err)
	require.Equal(t, enums.ProjectStatusSubmitted, submitted.Status)
	require.Equal(t, 2.0, submitted.PendingHours)

	list, err := sessionSvc.ListForProject(ctx, user.ID, project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, enums.SessionStatusSubmitted, list[0].Status)

	total, err := sessionSvc.TotalHours(ctx, user.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, total)
}
