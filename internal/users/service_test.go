package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	users     map[string]*models.User
	createErr error
	nextID    int
}

func newMemoryRepo(users ...*models.User) *memoryRepo {
	r := &memoryRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, db.ErrNotFound
}

func (r *memoryRepo) FindBySlackID(_ context.Context, slackID string) (*models.User, error) {
	for _, u := range r.users {
		if u.SlackID == slackID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *memoryRepo) Create(_ context.Context, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	user.ID = "rec" + string(rune('A'+r.nextID))
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryRepo) UpdateProfile(_ context.Context, id string, update ProfileUpdate) error {
	u, ok := r.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.Email, u.FirstName, u.LastName = update.Email, update.FirstName, update.LastName
	if update.Birthday != "" {
		u.Birthday = update.Birthday
	}
	if update.Address != nil {
		u.Address = *update.Address
	}
	return nil
}

func (r *memoryRepo) MarkSessionsInvalidated(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.SessionsInvalidatedAt = &at
	return nil
}

type capturingPublisher struct {
	events []events.Event
}

func (c *capturingPublisher) Publish(_ context.Context, evt events.Event) {
	c.events = append(c.events, evt)
}

func newTestService(t *testing.T, repo Repository, pub events.Publisher) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Events: pub,
		Now:    func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestEnsureUserCreatesOnce(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturingPublisher{}
	svc := newTestService(t, repo, pub)

	first, created, err := svc.EnsureUser(context.Background(), Identity{SlackID: " U123 ", Name: "Ada"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "U123", first.SlackID)

	second, created, err := svc.EnsureUser(context.Background(), Identity{SlackID: "U123"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.users, 1)

	require.Len(t, pub.events, 1)
	require.Equal(t, events.TypeUserCreated, pub.events[0].Type)
}

func TestEnsureUserRequiresSlackID(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), nil)
	_, _, err := svc.EnsureUser(context.Background(), Identity{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEnsureUserStoreFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.createErr = errors.New("airtable down")
	svc := newTestService(t, repo, nil)
	_, _, err := svc.EnsureUser(context.Background(), Identity{SlackID: "U1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGetProfileHidesAddress(t *testing.T) {
	repo := newMemoryRepo(&models.User{
		ID:        "u1",
		SlackID:   "U1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Birthday:  "2008-01-02",
		Address:   types.Address{Line1: "1 Main", City: "Burlington", State: "VT", PostalCode: "05401", Country: "US"},
	})
	svc := newTestService(t, repo, nil)

	profile, err := svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, profile.HasAddress)
	require.True(t, profile.ProfileComplete)

	_, err = svc.GetProfile(context.Background(), "missing")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(&models.User{ID: "u1", SlackID: "U1"}), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  UpdateProfileRequest
		msg  string
	}{
		{name: "no personal info", req: UpdateProfileRequest{}, msg: msgProfileRequired},
		{name: "blank last name", req: UpdateProfileRequest{PersonalInfo: &PersonalInfo{Email: "a@b.co", FirstName: "A", LastName: "  "}}, msg: msgPersonalRequired},
		{name: "bad birthday", req: UpdateProfileRequest{PersonalInfo: &PersonalInfo{Email: "a@b.co", FirstName: "A", LastName: "B", Birthday: "01/02/2008"}}, msg: msgBirthdayFormat},
		{
			name: "partial address",
			req: UpdateProfileRequest{
				PersonalInfo: &PersonalInfo{Email: "a@b.co", FirstName: "A", LastName: "B"},
				Address:      &types.Address{Line1: "1 Main"},
			},
			msg: msgAddressRequired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, "u1", tc.req)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeValidation, typed.Code())
			require.Equal(t, tc.msg, typed.Message())
		})
	}
}

func TestUpdateProfileWritesAddressFromLegacyKey(t *testing.T) {
	repo := newMemoryRepo(&models.User{ID: "u1", SlackID: "U1"})
	svc := newTestService(t, repo, nil)

	profile, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		PersonalInfo: &PersonalInfo{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Birthday: "2008-01-02"},
		AddressInfo:  &types.Address{Line1: " 1 Main ", City: "Burlington", State: "VT", PostalCode: "05401", Country: "US"},
	})
	require.NoError(t, err)
	require.True(t, profile.HasAddress)
	require.True(t, profile.ProfileComplete)
	require.Equal(t, "1 Main", repo.users["u1"].Address.Line1)
}

func TestUpdateProfileKeepsAddressWhenOmitted(t *testing.T) {
	addr := types.Address{Line1: "1 Main", City: "Burlington", State: "VT", PostalCode: "05401", Country: "US"}
	repo := newMemoryRepo(&models.User{ID: "u1", SlackID: "U1", Address: addr, Birthday: "2008-01-02"})
	svc := newTestService(t, repo, nil)

	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		PersonalInfo: &PersonalInfo{Email: "ada@example.com", FirstName: "Ada", LastName: "L"},
	})
	require.NoError(t, err)
	require.Equal(t, addr, repo.users["u1"].Address)
	require.Equal(t, "2008-01-02", repo.users["u1"].Birthday)
}

func TestInvalidateSessionsStampsNow(t *testing.T) {
	repo := newMemoryRepo(&models.User{ID: "u1", SlackID: "U1"})
	svc := newTestService(t, repo, nil)

	at, err := svc.InvalidateSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), at)
	require.True(t, repo.users["u1"].InvalidatedSince(at.Add(-time.Second)))

	_, err = svc.InvalidateSessions(context.Background(), "nope")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
