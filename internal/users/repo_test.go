package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/dbtest"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestGormRepositoryRoundTrip(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()

	user := &models.User{SlackID: "U42", Name: "Grace"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	found, err := repo.FindBySlackID(ctx, "U42")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	addr := types.Address{Line1: "1 Main", City: "Burlington", State: "VT", PostalCode: "05401", Country: "US"}
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, ProfileUpdate{
		Email:     "grace@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Birthday:  "2007-12-09",
		Address:   &addr,
	}))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSessionsInvalidated(ctx, user.ID, at))

	loaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, addr, loaded.Address)
	require.Equal(t, "2007-12-09", loaded.Birthday)
	require.NotNil(t, loaded.SessionsInvalidatedAt)
	require.True(t, loaded.SessionsInvalidatedAt.Equal(at))
	require.Empty(t, loaded.ProfileMissing())
}

func TestGormRepositoryNotFound(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	require.True(t, errors.Is(err, db.ErrNotFound))

	err = repo.MarkSessionsInvalidated(ctx, "missing", time.Now())
	require.True(t, errors.Is(err, db.ErrNotFound))
}

func TestGormRepositoryUniqueSlackID(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{SlackID: "U1"}))
	err := repo.Create(ctx, &models.User{SlackID: "U1"})
	require.True(t, db.IsUniqueViolation(err, ""))
}
