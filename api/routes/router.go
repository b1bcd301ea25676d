package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jetfund/jetfund-backend/api/controllers"
	"github.com/jetfund/jetfund-backend/api/middleware"
	"github.com/jetfund/jetfund-backend/internal/auth"
	"github.com/jetfund/jetfund-backend/internal/earnings"
	"github.com/jetfund/jetfund-backend/internal/hackathons"
	"github.com/jetfund/jetfund-backend/internal/hackatime"
	"github.com/jetfund/jetfund-backend/internal/projects"
	"github.com/jetfund/jetfund-backend/internal/sessions"
	"github.com/jetfund/jetfund-backend/internal/upload"
	"github.com/jetfund/jetfund-backend/internal/users"
	"github.com/jetfund/jetfund-backend/pkg/auth/session"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
)

type userLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type redisStore interface {
	controllers.Pinger
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the HTTP surface dispatches to.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          redisStore
	Sessions       session.AccessSessionChecker
	UserRecords    userLoader
	RateLimiter    *middleware.RateLimiter
	HTTPMetrics    *metrics.HTTPMetrics
	Gatherer       prometheus.Gatherer
	ReadyChecks    map[string]controllers.Pinger
	Auth           auth.Service
	Users          users.Service
	Projects       projects.Service
	WorkSessions   sessions.Service
	Earnings       *earnings.Service
	Hackatime      *hackatime.Service
	Hackathons     *hackathons.Service
	Upload         upload.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}

	slackPolicy := middleware.NewAuthRateLimitPolicy(
		"slack",
		cfg.RateLimit.AuthWindow,
		cfg.RateLimit.AuthIPLimit,
	)
	general := middleware.PerMinute("general", cfg.RateLimit.GeneralPerMinute, cfg.RateLimit.GeneralBurst)
	uploads := middleware.PerMinute("upload", cfg.RateLimit.UploadPerMinute, cfg.RateLimit.UploadBurst)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.ReadyChecks))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(slackPolicy, d.Redis, logg))
			r.Get("/slack/login", controllers.SlackLogin(d.Auth, logg))
			r.Get("/slack/callback", controllers.SlackCallback(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Get("/hackathons", controllers.Hackathons(d.Hackathons, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, d.UserRecords, logg))
			r.Use(middleware.Idempotency(d.Redis, logg))
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Middleware(general))
			}

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/current", controllers.SessionCurrent(d.WorkSessions, logg))
				r.Post("/start", controllers.SessionStart(d.WorkSessions, logg))
				r.Post("/finish", controllers.SessionFinish(d.WorkSessions, logg))
				r.Post("/submit", controllers.SessionSubmit(d.WorkSessions, logg))
				r.Put("/{id}", controllers.SessionResubmit(d.WorkSessions, logg))
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", controllers.ProjectList(d.Projects, logg))
				r.Post("/", controllers.ProjectCreate(d.Projects, logg))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", controllers.ProjectGet(d.Projects, logg))
					r.Put("/", controllers.ProjectEdit(d.Projects, logg))
					r.Delete("/", controllers.ProjectDelete(d.Projects, logg))
					r.Post("/submit", controllers.ProjectSubmit(d.Projects, logg))
					r.Post("/reopen", controllers.ProjectReopen(d.Projects, logg))
					r.Get("/sessions", controllers.ProjectSessions(d.WorkSessions, logg))
					r.Get("/total-time", controllers.ProjectTotalTime(d.WorkSessions, logg))
				})
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", controllers.UserProfile(d.Users, logg))
				r.Put("/profile", controllers.UserUpdateProfile(d.Users, logg))
				r.Post("/invalidate-sessions", controllers.UserInvalidateSessions(d.Users, logg))
			})

			r.Get("/earnings", controllers.Earnings(d.Earnings, logg))
			r.Get("/hackatime/stats", controllers.HackatimeStats(d.Hackatime, logg))

			uploadHandler := controllers.Upload(d.Upload, cfg.Upload.MaxUploadBytes(), logg)
			if d.RateLimiter != nil {
				r.With(d.RateLimiter.Middleware(uploads)).Post("/upload", uploadHandler)
			} else {
				r.Post("/upload", uploadHandler)
			}
		})
	})

	return r
}
