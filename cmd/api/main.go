package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/jetfund/jetfund-backend/api/controllers"
	"github.com/jetfund/jetfund-backend/api/middleware"
	"github.com/jetfund/jetfund-backend/api/routes"
	"github.com/jetfund/jetfund-backend/internal/auth"
	"github.com/jetfund/jetfund-backend/internal/earnings"
	"github.com/jetfund/jetfund-backend/internal/events"
	"github.com/jetfund/jetfund-backend/internal/hackathons"
	"github.com/jetfund/jetfund-backend/internal/hackatime"
	"github.com/jetfund/jetfund-backend/internal/projects"
	"github.com/jetfund/jetfund-backend/internal/sessions"
	"github.com/jetfund/jetfund-backend/internal/users"
	"github.com/jetfund/jetfund-backend/pkg/auth/session"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/instance"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
	"github.com/jetfund/jetfund-backend/pkg/pubsub"
	"github.com/jetfund/jetfund-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	exit := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		_ = closeAll(closers)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	store, err := openStore(ctx, cfg, logg)
	if err != nil {
		exit("failed to open store", err)
	}
	closers = append(closers, store.close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		exit("failed to bootstrap redis", err)
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		exit("failed to create session manager", err)
	}

	readyChecks := map[string]controllers.Pinger{
		"store": store.ping,
		"redis": redisClient,
	}

	var pubsubClient *pubsub.Client
	if cfg.PubSub.Enabled() {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			exit("failed to bootstrap pubsub", err)
		}
		closers = append(closers, pubsubClient.Close)
		readyChecks["pubsub"] = pubsubClient
	}
	publisher := events.NewPublisher(events.PublisherParams{
		PubSub:  optionalPublisher(pubsubClient),
		Metrics: domainMetrics,
		Logger:  logg,
	})

	hackatimeClient := hackatime.NewClient(cfg.Hackatime)
	hackatimeService, err := hackatime.NewService(hackatimeClient, store.users)
	if err != nil {
		exit("failed to create hackatime service", err)
	}

	usersService, err := users.NewService(users.ServiceParams{Repo: store.users, Events: publisher})
	if err != nil {
		exit("failed to create users service", err)
	}

	projectsService, err := projects.NewService(projects.ServiceParams{
		Repo:      store.projects,
		Sessions:  store.sessions,
		Users:     store.users,
		Hackatime: hackatimeClient,
		Features:  cfg.Features,
		Events:    publisher,
	})
	if err != nil {
		exit("failed to create projects service", err)
	}

	sessionsService, err := sessions.NewService(sessions.ServiceParams{
		Repo:     store.sessions,
		Projects: store.projects,
		Guard:    redisClient,
		Features: cfg.Features,
		Events:   publisher,
	})
	if err != nil {
		exit("failed to create sessions service", err)
	}

	earningsService, err := earnings.NewService(store.projects, store.users)
	if err != nil {
		exit("failed to create earnings service", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Provider:       auth.NewSlackProvider(cfg.Slack),
		States:         redisClient,
		Users:          usersService,
		UserRepo:       store.users,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		StateTTL:       cfg.Slack.StateTTL,
		Events:         publisher,
	})
	if err != nil {
		exit("failed to create auth service", err)
	}

	uploadService, uploadCheck, err := buildUpload(ctx, cfg, domainMetrics, logg)
	if err != nil {
		exit("failed to create upload service", err)
	}
	if uploadCheck != nil {
		readyChecks["upload"] = uploadCheck
	}

	hackathonsService := hackathons.NewService(hackathons.ServiceParams{
		Config:  cfg.Hackathons,
		Cache:   redisClient,
		Metrics: domainMetrics,
		Logger:  logg,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, logg)
	closers = append(closers, func() error {
		rateLimiter.Stop()
		return nil
	})

	handler := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		Redis:        redisClient,
		Sessions:     sessionManager,
		UserRecords:  store.users,
		RateLimiter:  rateLimiter,
		HTTPMetrics:  metrics.NewHTTPMetrics(registry),
		Gatherer:     registry,
		ReadyChecks:  readyChecks,
		Auth:         authService,
		Users:        usersService,
		Projects:     projectsService,
		WorkSessions: sessionsService,
		Earnings:     earningsService,
		Hackatime:    hackatimeService,
		Hackathons:   hackathonsService,
		Upload:       uploadService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"store":    cfg.Store.Driver,
		"upload":   cfg.Upload.FirstHop,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			exit("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	logg.Info(logCtx, "shutting down api server")

	err = multierr.Append(server.Shutdown(shutdownCtx), closeAll(closers))
	if err != nil {
		logg.Error(logCtx, "api shutdown finished with errors", err)
		os.Exit(1)
	}
}

// closeAll runs closers in reverse order of registration.
func closeAll(closers []func() error) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i]())
	}
	return err
}

// optionalPublisher keeps a nil *pubsub.Client from becoming a non-nil interface.
func optionalPublisher(client *pubsub.Client) interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
} {
	if client == nil {
		return nil
	}
	return client
}
