package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/enums"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/redis"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type memoryRepo struct {
	sessions map[string]*models.Session
	seq      int
}

func newMemoryRepo(rows ...*models.Session) *memoryRepo {
	r := &memoryRepo{sessions: map[string]*models.Session{}}
	for _, s := range rows {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *memoryRepo) Create(_ context.Context, s *models.Session) error {
	r.seq++
	s.ID = fmt.Sprintf("sess-%d", r.seq)
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*models.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *s
	cp.HoursSpent = cp.Hours()
	return &cp, nil
}

func (r *memoryRepo) FindUnfinished(_ context.Context, userID, projectID string) (*models.Session, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && (projectID == "" || s.ProjectID == projectID) && s.IsUnfinished() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *memoryRepo) ListByProject(_ context.Context, projectID string) ([]models.Session, error) {
	var out []models.Session
	for _, s := range r.sessions {
		if s.ProjectID == projectID {
			cp := *s
			cp.HoursSpent = cp.Hours()
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, changes Changes) error {
	s, ok := r.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	changes.apply(s)
	return nil
}

func (r *memoryRepo) SubmitFinished(_ context.Context, projectID string) (int, error) {
	n := 0
	for _, s := range r.sessions {
		if s.ProjectID == projectID && s.Status == enums.SessionStatusFinished {
			s.Status = enums.SessionStatusSubmitted
			n++
		}
	}
	return n, nil
}

type projectMap map[string]*models.Project

func (p projectMap) FindByID(_ context.Context, id string) (*models.Project, error) {
	if project, ok := p[id]; ok {
		cp := *project
		return &cp, nil
	}
	return nil, db.ErrNotFound
}

type fakeGuard struct {
	held     bool
	err      error
	released int
}

func (g *fakeGuard) AcquireLock(context.Context, string, string, time.Duration) (*redis.Lock, bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	if g.held {
		return nil, false, nil
	}
	return &redis.Lock{}, true, nil
}

func (g *fakeGuard) ReleaseLock(context.Context, *redis.Lock) error {
	g.released++
	return nil
}

func defaultProjects() projectMap {
	return projectMap{
		"p1":  {ID: "p1", UserID: "u1", Name: "Robo", Status: enums.ProjectStatusActive},
		"p2":  {ID: "p2", UserID: "u1", Name: "Done", Status: enums.ProjectStatusSubmitted},
		"ph":  {ID: "ph", UserID: "u1", Name: "Tracked", Status: enums.ProjectStatusActive, HackatimeProjectName: "tracked"},
		"pu2": {ID: "pu2", UserID: "u2", Name: "Theirs", Status: enums.ProjectStatusActive},
	}
}

func newTestService(t *testing.T, repo Repository, guard startGuard, now func() time.Time) Service {
	t.Helper()
	if now == nil {
		now = func() time.Time { return testNow }
	}
	params := ServiceParams{Repo: repo, Projects: defaultProjects(), Now: now}
	if guard != nil {
		params.Guard = guard
		params.Features = config.FeatureFlagsConfig{SessionStartGuard: true, SessionStartGuardTTL: time.Second}
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func requireMessage(t *testing.T, err error, code pkgerrors.Code, msg string) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
	if msg != "" {
		require.Equal(t, msg, typed.Message())
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestNewServiceDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Projects: projectMap{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: newMemoryRepo()})
	require.Error(t, err)
	_, err = NewService(ServiceParams{
		Repo:     newMemoryRepo(),
		Projects: projectMap{},
		Features: config.FeatureFlagsConfig{SessionStartGuard: true},
	})
	require.Error(t, err)
}

func TestStartCreatesOngoingSession(t *testing.T) {
	repo := newMemoryRepo()
	guard := &fakeGuard{}
	svc := newTestService(t, repo, guard, nil)

	dto, err := svc.Start(context.Background(), "u1", " p1 ")
	require.NoError(t, err)
	require.Equal(t, enums.SessionStatusOngoing, dto.Status)
	require.Equal(t, "p1", dto.ProjectID)
	require.True(t, dto.StartTime.Equal(testNow))
	require.Nil(t, dto.EndTime)
	require.Empty(t, dto.GitCommitURL)
	require.Equal(t, 1, guard.released)
}

func TestStartGuards(t *testing.T) {
	cases := []struct {
		name    string
		userID  string
		project string
		code    pkgerrors.Code
		msg     string
	}{
		{name: "blank project", userID: "u1", project: "  ", code: pkgerrors.CodeValidation, msg: MsgMissingProject},
		{name: "missing project", userID: "u1", project: "nope", code: pkgerrors.CodeNotFound, msg: MsgProjectNotFound},
		{name: "someone else's", userID: "u1", project: "pu2", code: pkgerrors.CodeForbidden, msg: MsgNotAuthorized},
		{name: "not active", userID: "u1", project: "p2", code: pkgerrors.CodeValidation, msg: MsgProjectNotActive},
		{name: "hackatime linked", userID: "u1", project: "ph", code: pkgerrors.CodeValidation, msg: MsgHackatimeTracked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo()
			svc := newTestService(t, repo, nil, nil)
			_, err := svc.Start(context.Background(), tc.userID, tc.project)
			requireMessage(t, err, tc.code, tc.msg)
			require.Empty(t, repo.sessions)
		})
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	cases := map[string]*models.Session{
		"ongoing": {ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-time.Hour), Status: enums.SessionStatusOngoing},
		"finished without proof": {
			ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-2 * time.Hour),
			EndTime: ptrTime(testNow.Add(-time.Hour)), Status: enums.SessionStatusFinished, GitCommitURL: "https://github.com/x/y/commit/1",
		},
	}
	for name, blocking := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newMemoryRepo(blocking)
			svc := newTestService(t, repo, nil, nil)

			_, err := svc.Start(context.Background(), "u1", "p1")
			requireMessage(t, err, pkgerrors.CodeValidation, MsgUnfinishedSession)
			details, ok := pkgerrors.As(err).Details().(map[string]any)
			require.True(t, ok)
			require.Equal(t, "s1", details["session"].(*SessionDTO).ID)
			require.Len(t, repo.sessions, 1)
		})
	}
}

func TestStartAllowsAfterProofSubmitted(t *testing.T) {
	repo := newMemoryRepo(&models.Session{
		ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-2 * time.Hour),
		EndTime: ptrTime(testNow.Add(-time.Hour)), Status: enums.SessionStatusFinished,
		GitCommitURL: "https://github.com/x/y/commit/1", ImageURL: "https://cdn.example.com/a.png",
	})
	svc := newTestService(t, repo, nil, nil)
	_, err := svc.Start(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Len(t, repo.sessions, 2)
}

func TestStartGuardContended(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, &fakeGuard{held: true}, nil)
	_, err := svc.Start(context.Background(), "u1", "p1")
	requireMessage(t, err, pkgerrors.CodeValidation, MsgStartInProgress)
	require.Empty(t, repo.sessions)

	svc = newTestService(t, repo, &fakeGuard{err: errors.New("redis down")}, nil)
	_, err = svc.Start(context.Background(), "u1", "p1")
	requireMessage(t, err, pkgerrors.CodeDependency, "")
}

func TestFinishDurationBounds(t *testing.T) {
	cases := []struct {
		name    string
		started time.Time
		msg     string
	}{
		{name: "over a day", started: testNow.Add(-24*time.Hour - time.Second), msg: MsgTooLong},
		{name: "in the future", started: testNow.Add(time.Minute), msg: MsgStartInFuture},
		{name: "too short", started: testNow.Add(-59 * time.Second), msg: MsgTooShort},
		{name: "exactly one minute", started: testNow.Add(-time.Minute)},
		{name: "exactly a day", started: testNow.Add(-24 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo(&models.Session{ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: tc.started, Status: enums.SessionStatusOngoing})
			svc := newTestService(t, repo, nil, nil)

			dto, err := svc.Finish(context.Background(), "u1", "s1")
			if tc.msg != "" {
				requireMessage(t, err, pkgerrors.CodeValidation, tc.msg)
				require.Nil(t, repo.sessions["s1"].EndTime)
				return
			}
			require.NoError(t, err)
			require.Equal(t, enums.SessionStatusFinished, dto.Status)
			require.NotNil(t, dto.EndTime)
			require.Empty(t, dto.GitCommitURL)
		})
	}
}

func TestFinishGuards(t *testing.T) {
	repo := newMemoryRepo(
		&models.Session{ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-time.Hour), EndTime: ptrTime(testNow), Status: enums.SessionStatusFinished},
		&models.Session{ID: "s2", UserID: "u2", ProjectID: "pu2", StartTime: testNow.Add(-time.Hour), Status: enums.SessionStatusOngoing},
	)
	svc := newTestService(t, repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Finish(ctx, "u1", "")
	requireMessage(t, err, pkgerrors.CodeValidation, MsgMissingSession)
	_, err = svc.Finish(ctx, "u1", "nope")
	requireMessage(t, err, pkgerrors.CodeNotFound, MsgSessionNotFound)
	_, err = svc.Finish(ctx, "u1", "s2")
	requireMessage(t, err, pkgerrors.CodeForbidden, MsgNotAuthorized)
	_, err = svc.Finish(ctx, "u1", "s1")
	requireMessage(t, err, pkgerrors.CodeValidation, MsgNotRunning)
}

func TestSubmitProofStates(t *testing.T) {
	end := ptrTime(testNow.Add(-time.Hour))
	start := testNow.Add(-3 * time.Hour)
	cases := []struct {
		name    string
		session models.Session
		msg     string
	}{
		{name: "approved", session: models.Session{Status: enums.SessionStatusApproved, EndTime: end}, msg: MsgAlreadyReviewed},
		{name: "submitted", session: models.Session{Status: enums.SessionStatusSubmitted, EndTime: end}, msg: MsgAlreadySubmitted},
		{name: "ongoing", session: models.Session{Status: enums.SessionStatusOngoing}, msg: MsgNotFinished},
		{
			name:    "proof exists",
			session: models.Session{Status: enums.SessionStatusFinished, EndTime: end, GitCommitURL: "https://a", ImageURL: "https://b"},
			msg:     MsgProofAlreadyExists,
		},
		{name: "first submission", session: models.Session{Status: enums.SessionStatusFinished, EndTime: end}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.session
			s.ID, s.UserID, s.ProjectID, s.StartTime = "s1", "u1", "p1", start
			repo := newMemoryRepo(&s)
			svc := newTestService(t, repo, nil, nil)

			dto, err := svc.SubmitProof(context.Background(), "u1", ProofRequest{
				SessionID:    "s1",
				GitCommitURL: "https://github.com/x/y/commit/abc",
				ImageURL:     "https://cdn.example.com/shot.png",
			})
			if tc.msg != "" {
				requireMessage(t, err, pkgerrors.CodeValidation, tc.msg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, enums.SessionStatusFinished, dto.Status)
			require.Equal(t, "https://github.com/x/y/commit/abc", dto.GitCommitURL)
			require.Equal(t, 2.0, dto.HoursSpent)
		})
	}
}

func TestSubmitProofRequiresAllFields(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), nil, nil)
	_, err := svc.SubmitProof(context.Background(), "u1", ProofRequest{SessionID: "s1", GitCommitURL: "https://a"})
	requireMessage(t, err, pkgerrors.CodeValidation, MsgMissingFields)
}

func TestResubmitRejectedSession(t *testing.T) {
	repo := newMemoryRepo(
		&models.Session{
			ID: "s1", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-2 * time.Hour), EndTime: ptrTime(testNow.Add(-time.Hour)),
			Status: enums.SessionStatusRejected, RejectionReason: "blurry screenshot",
			GitCommitURL: "https://old", ImageURL: "https://old.png",
		},
		&models.Session{
			ID: "s2", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-5 * time.Hour), EndTime: ptrTime(testNow.Add(-4 * time.Hour)),
			Status: enums.SessionStatusApproved, GitCommitURL: "https://a", ImageURL: "https://b",
		},
	)
	svc := newTestService(t, repo, nil, nil)
	req := ProofRequest{GitCommitURL: "https://github.com/x/y/commit/new", ImageURL: "https://cdn.example.com/new.png"}

	dto, err := svc.ResubmitRejected(context.Background(), "u1", "s1", req)
	require.NoError(t, err)
	require.Equal(t, enums.SessionStatusFinished, dto.Status)
	require.Empty(t, dto.RejectionReason)
	require.Equal(t, "https://cdn.example.com/new.png", repo.sessions["s1"].ImageURL)

	_, err = svc.ResubmitRejected(context.Background(), "u1", "s2", req)
	requireMessage(t, err, pkgerrors.CodeValidation, MsgOnlyRejected)
}

func TestCurrentSession(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, nil, nil)

	current, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, current)

	started, err := svc.Start(context.Background(), "u1", "p1")
	require.NoError(t, err)
	current, err = svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, started.ID, current.ID)
}

func TestListAndTotalHours(t *testing.T) {
	repo := newMemoryRepo(
		&models.Session{ID: "a", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-10 * time.Hour), EndTime: ptrTime(testNow.Add(-8*time.Hour - 30*time.Minute)), Status: enums.SessionStatusApproved},
		&models.Session{ID: "b", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-5 * time.Hour), EndTime: ptrTime(testNow.Add(-4*time.Hour - 40*time.Minute)), Status: enums.SessionStatusFinished},
		&models.Session{ID: "c", UserID: "u1", ProjectID: "p1", StartTime: testNow.Add(-time.Hour), Status: enums.SessionStatusOngoing},
	)
	svc := newTestService(t, repo, nil, nil)

	list, err := svc.ListForProject(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	total, err := svc.TotalHours(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, 1.83, total)

	_, err = svc.TotalHours(context.Background(), "u1", "pu2")
	requireMessage(t, err, pkgerrors.CodeForbidden, MsgNotAuthorized)
}
