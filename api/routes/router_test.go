package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetfund/jetfund-backend/api/controllers"
	"github.com/jetfund/jetfund-backend/api/middleware"
	"github.com/jetfund/jetfund-backend/internal/hackathons"
	"github.com/jetfund/jetfund-backend/internal/projects"
	pkgAuth "github.com/jetfund/jetfund-backend/pkg/auth"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
)

type stubRedis struct {
	counts map[string]int64
	data   map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{counts: map[string]int64{}, data: map[string]string{}}
}

func (s *stubRedis) Ping(context.Context) error { return nil }

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *stubRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

type stubSessions struct{ live bool }

func (s stubSessions) HasSession(context.Context, string) (bool, error) {
	return s.live, nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

type stubProjects struct {
	projects.Service
	created int
}

func (s *stubProjects) List(_ context.Context, userID string) ([]projects.ProjectDTO, error) {
	return []projects.ProjectDTO{{ID: "p1", Name: "Rocket for " + userID}}, nil
}

func (s *stubProjects) Create(_ context.Context, _ string, req projects.CreateRequest) (*projects.ProjectDTO, error) {
	s.created++
	return &projects.ProjectDTO{ID: "p2", Name: req.Name}, nil
}

type fixture struct {
	handler  http.Handler
	cfg      *config.Config
	projects *stubProjects
	redis    *stubRedis
	reg      *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Summer Jam"}]`))
	}))
	t.Cleanup(feed.Close)

	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "jetfund", ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{
			GeneralPerMinute: 120,
			GeneralBurst:     60,
			UploadPerMinute:  10,
			UploadBurst:      5,
			AuthWindow:       time.Minute,
			AuthIPLimit:      2,
		},
		Upload: config.UploadConfig{MaxUploadMB: 1},
	}

	reg := prometheus.NewRegistry()
	limiter := middleware.NewRateLimiter(cfg.RateLimit, logger.Nop())
	t.Cleanup(limiter.Stop)

	f := &fixture{cfg: cfg, projects: &stubProjects{}, redis: newStubRedis(), reg: reg}
	f.handler = NewRouter(Deps{
		Config:       cfg,
		Logger:       logger.Nop(),
		Redis:        f.redis,
		Sessions:     stubSessions{live: true},
		UserRecords:  stubUsers{"user-1": {ID: "user-1", SlackID: "U1"}},
		RateLimiter:  limiter,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
		Gatherer:     reg,
		ReadyChecks:  map[string]controllers.Pinger{"redis": f.redis},
		Projects:     f.projects,
		Hackathons:   hackathons.NewService(hackathons.ServiceParams{Config: config.HackathonsConfig{URL: feed.URL}}),
	})
	return f
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, SlackID: "U1", JTI: "jti-1"})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t)

	live := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, live.Code)

	ready := f.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, ready.Code)
}

func TestHackathonsArePublic(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/hackathons", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Summer Jam", body.Data[0]["name"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/v1/projects", "/api/v1/sessions/current", "/api/v1/earnings", "/api/v1/user/profile"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAuthenticatedProjectList(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "user-1"))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rocket for user-1")
}

func TestUnknownUserIsRejected(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestProjectCreateReplaysWithIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "user-1")

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"Glider"}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "create-1")
		return f.do(req)
	}

	first := send()
	second := send()
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, f.projects.created)
}

func TestAuthRoutesAreThrottledPerIP(t *testing.T) {
	f := newFixture(t)
	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/slack/callback?error=access_denied", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		last = f.do(req).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health/live"`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/api/v2/nope", nil)).Code)
}
